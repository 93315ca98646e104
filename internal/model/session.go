package model

import "time"

// SessionType distinguishes practice runs from exam simulations.
type SessionType string

const (
	SessionTypePractice SessionType = "practice"
	SessionTypeExam     SessionType = "exam"
)

// Session is one user's attempt over an assigned set of questions.
type Session struct {
	ID         int         `json:"id"`
	CreatorID  int         `json:"creator_id"`
	Name       string      `json:"name"`
	Notes      *string     `json:"notes,omitempty"`
	Type       SessionType `json:"type"`
	IsRandom   bool        `json:"is_random"`
	IsFinished bool        `json:"is_finished"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// SessionQuestion binds a question into a session at a local position.
type SessionQuestion struct {
	SessionID   int          `json:"session_id"`
	QuestionID  int          `json:"question_id"`
	LocalID     int          `json:"local_id"`
	Time        int          `json:"time"`
	IsSubmitted bool         `json:"is_submitted"`
	Type        QuestionType `json:"type"`
	Points      int          `json:"points"`
}

// QuestionFilter narrows the approved questions eligible for a session.
// Empty fields place no constraint.
type QuestionFilter struct {
	ModuleIDs     []int          `json:"module_ids" form:"module_id"`
	SemesterIDs   []int          `json:"semester_ids" form:"semester_id"`
	TagIDs        []int          `json:"tag_ids" form:"tag_id"`
	QuestionTypes []QuestionType `json:"question_types" form:"type"`
	Origins       []string       `json:"origins" form:"origin"`
	Text          string         `json:"text" form:"text"`
}

// CreateSessionRequest is the payload for creating a session.
type CreateSessionRequest struct {
	Name     string         `json:"name" binding:"required,min=1,max=128"`
	Notes    *string        `json:"notes" binding:"omitempty,max=1024"`
	Type     SessionType    `json:"type" binding:"required,oneof=practice exam"`
	IsRandom bool           `json:"is_random"`
	Filter   QuestionFilter `json:"filter"`
}

// UpdateSessionRequest changes session metadata. Assignment is never re-run.
type UpdateSessionRequest struct {
	Name     *string      `json:"name" binding:"omitempty,min=1,max=128"`
	Notes    *string      `json:"notes" binding:"omitempty,max=1024"`
	Type     *SessionType `json:"type" binding:"omitempty,oneof=practice exam"`
	IsRandom *bool        `json:"is_random"`
}

// AddTimeRequest overwrites the time spent on a session question.
type AddTimeRequest struct {
	Time *int `json:"time" binding:"required"`
}

// QuestionScore is the scoring outcome of one session question.
type QuestionScore struct {
	SessionID  int `json:"session_id"`
	QuestionID int `json:"question_id"`
	LocalID    int `json:"local_id"`
	Points     int `json:"points"`
	MaxPoints  int `json:"max_points"`
}

// SessionResult aggregates the scores of a whole session.
type SessionResult struct {
	SessionID   int             `json:"session_id"`
	IsFinished  bool            `json:"is_finished"`
	TotalPoints int             `json:"total_points"`
	MaxPoints   int             `json:"max_points"`
	Questions   []QuestionScore `json:"questions"`
}
