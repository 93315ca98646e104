package model

// SelectionState is the checked/crossed state of one answer position.
type SelectionState struct {
	LocalAnswerID int  `json:"local_answer_id"`
	IsChecked     bool `json:"is_checked"`
	IsCrossed     bool `json:"is_crossed"`
}

// Selection is a stored selection as seen through session-local ids.
type Selection struct {
	LocalQuestionID int  `json:"local_question_id"`
	LocalAnswerID   int  `json:"local_answer_id"`
	IsChecked       bool `json:"is_checked"`
	IsCrossed       bool `json:"is_crossed"`
}

// SetSelectionRequest lists the answer positions to check and to cross.
// Positions in neither list are written as unchecked and uncrossed.
type SetSelectionRequest struct {
	CheckedIDs []int `json:"checked_ids"`
	CrossedIDs []int `json:"crossed_ids"`
}
