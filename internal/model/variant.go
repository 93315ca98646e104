package model

// Variant is the type-specific extension of a question.
type Variant interface {
	QuestionType() QuestionType
}

// ChoiceAnswer is one option of a single- or multiple-choice question.
// ID is the global answer id that selections are keyed by.
type ChoiceAnswer struct {
	ID         int    `json:"id"`
	QuestionID int    `json:"question_id"`
	LocalID    int    `json:"local_id"`
	Text       string `json:"text"`
}

// SingleChoice has exactly one correct option.
type SingleChoice struct {
	CorrectAnswerLocalID int            `json:"correct_answer_local_id"`
	Answers              []ChoiceAnswer `json:"answers"`
}

func (SingleChoice) QuestionType() QuestionType { return QuestionTypeSingleChoice }

// MultipleChoice has a set of correct options.
type MultipleChoice struct {
	CorrectAnswerLocalIDs []int          `json:"correct_answer_local_ids"`
	Answers               []ChoiceAnswer `json:"answers"`
}

func (MultipleChoice) QuestionType() QuestionType { return QuestionTypeMultipleChoice }

// AssignmentIdentifier is a left-hand item that points at one answer.
type AssignmentIdentifier struct {
	ID                   int    `json:"id"`
	LocalID              int    `json:"local_id"`
	Text                 string `json:"text"`
	CorrectAnswerLocalID int    `json:"correct_answer_local_id"`
}

// AssignmentAnswer is a right-hand item of an assignment question.
type AssignmentAnswer struct {
	ID      int    `json:"id"`
	LocalID int    `json:"local_id"`
	Text    string `json:"text"`
}

// Assignment pairs identifiers with answers.
type Assignment struct {
	Identifiers []AssignmentIdentifier `json:"identifiers"`
	Answers     []AssignmentAnswer     `json:"answers"`
}

func (Assignment) QuestionType() QuestionType { return QuestionTypeAssignment }

// SingleChoicePayload carries the single-choice fields of a create or update body.
type SingleChoicePayload struct {
	Answers              []string `json:"answers"`
	CorrectAnswerLocalID *int     `json:"correct_answer_local_id"`
}

// MultipleChoicePayload carries the multiple-choice fields of a create or update body.
type MultipleChoicePayload struct {
	Answers               []string `json:"answers"`
	CorrectAnswerLocalIDs []int    `json:"correct_answer_local_ids"`
}

// AssignmentPayload carries the assignment fields of a create or update body.
type AssignmentPayload struct {
	Identifiers          []string `json:"identifiers"`
	Answers              []string `json:"answers"`
	CorrectAssignmentIDs []int    `json:"correct_assignment_ids"`
}
