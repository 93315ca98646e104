package model

import (
	"time"
)

// QuestionType is the tag that selects a question's variant handler.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single-choice"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeAssignment     QuestionType = "assignment"
)

// Question is the type-independent base record of every question.
type Question struct {
	ID                    int          `json:"id"`
	Text                  string       `json:"text"`
	Type                  QuestionType `json:"type"`
	AdditionalInformation *string      `json:"additional_information,omitempty"`
	Points                int          `json:"points"`
	ExamID                *int         `json:"exam_id,omitempty"`
	CourseID              int          `json:"course_id"`
	CreatorID             int          `json:"creator_id"`
	UpdaterID             *int         `json:"updater_id,omitempty"`
	Origin                string       `json:"origin"`
	IsApproved            bool         `json:"is_approved"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// QuestionView is a question materialized together with its variant.
// Variant is nil when the stored type has no registered handler.
type QuestionView struct {
	Question
	Variant Variant `json:"variant,omitempty"`
}

// CreateQuestionRequest holds the shared fields of a create payload.
// Pointers distinguish absent fields from zero values; the variant
// specific fields travel in the same JSON document.
type CreateQuestionRequest struct {
	Text                  *string       `json:"text"`
	Type                  *QuestionType `json:"type"`
	AdditionalInformation *string       `json:"additional_information"`
	Points                *int          `json:"points"`
	ExamID                *int          `json:"exam_id"`
	CourseID              *int          `json:"course_id"`
	Origin                *string       `json:"origin"`
}

// UpdateQuestionRequest holds the optional shared fields of an update payload.
type UpdateQuestionRequest struct {
	Text                  *string `json:"text"`
	AdditionalInformation *string `json:"additional_information"`
	Points                *int    `json:"points"`
	ExamID                *int    `json:"exam_id"`
	CourseID              *int    `json:"course_id"`
	Origin                *string `json:"origin"`
}

// QuestionStatus is the per-session progress of one question.
type QuestionStatus struct {
	LocalID     int  `json:"local_id"`
	QuestionID  int  `json:"question_id"`
	Time        int  `json:"time"`
	IsSubmitted bool `json:"is_submitted"`
}

// QuestionSearch holds the catalogue search parameters.
type QuestionSearch struct {
	Term         string `form:"term"`
	SemesterID   *int   `form:"semester_id"`
	ModuleID     *int   `form:"module_id"`
	CourseID     *int   `form:"course_id"`
	ExamID       *int   `form:"exam_id"`
	TagID        *int   `form:"tag_id"`
	OnlyApproved bool   `form:"only_approved"`
	Page         int    `form:"page"`
	PerPage      int    `form:"per_page"`
}

// Origin is an entry in the closed vocabulary of question provenances.
type Origin struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
