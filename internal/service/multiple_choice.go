package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// MultipleChoiceStore persists multiple-choice extensions.
type MultipleChoiceStore interface {
	Create(ctx context.Context, questionID int, correctLocalIDs []int, answers []string) error
	Get(ctx context.Context, questionID int) (*model.MultipleChoice, error)
	Update(ctx context.Context, questionID int, correctLocalIDs []int, answers []string) error
}

// MultipleChoiceHandler implements questions with a set of correct answers.
type MultipleChoiceHandler struct {
	store MultipleChoiceStore
}

// NewMultipleChoiceHandler creates a new MultipleChoiceHandler.
func NewMultipleChoiceHandler(store MultipleChoiceStore) *MultipleChoiceHandler {
	return &MultipleChoiceHandler{store: store}
}

func (h *MultipleChoiceHandler) Type() model.QuestionType { return model.QuestionTypeMultipleChoice }

func (h *MultipleChoiceHandler) MaxChecked() int { return 0 }

// validateCorrectSet checks the correct ids against answerCount. Duplicates
// are allowed.
func validateCorrectSet(correct []int, answerCount int) error {
	if len(correct) == 0 {
		return apperror.Conflict("multiple_choice.correct_answers.not_enough").With("min", 1)
	}
	if len(correct) > answerCount {
		return apperror.Conflict("multiple_choice.correct_answers.too_many").With("max", answerCount)
	}
	for _, id := range correct {
		if err := checkLocalID("multiple_choice.correct_answers.out_of_range", id, answerCount); err != nil {
			return err
		}
	}
	return nil
}

func validateMultipleChoiceCreate(p model.MultipleChoicePayload) error {
	if err := validateChoiceAnswers("multiple_choice", p.Answers); err != nil {
		return err
	}
	if p.CorrectAnswerLocalIDs == nil {
		return apperror.Conflict("multiple_choice.correct_answers.required")
	}
	return validateCorrectSet(p.CorrectAnswerLocalIDs, len(p.Answers))
}

func (h *MultipleChoiceHandler) Create(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.MultipleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := validateMultipleChoiceCreate(p); err != nil {
		return nil, err
	}
	if err := h.store.Create(ctx, questionID, p.CorrectAnswerLocalIDs, p.Answers); err != nil {
		return nil, fmt.Errorf("create multiple choice: %w", err)
	}
	return h.Fetch(ctx, questionID)
}

func (h *MultipleChoiceHandler) validateUpdate(ctx context.Context, questionID int, p model.MultipleChoicePayload) error {
	if p.Answers == nil && p.CorrectAnswerLocalIDs == nil {
		return nil
	}
	mc, err := h.store.Get(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("multiple_choice.not_found")
		}
		return fmt.Errorf("get multiple choice: %w", err)
	}

	answerCount := len(mc.Answers)
	if p.Answers != nil {
		if err := validateChoiceAnswers("multiple_choice", p.Answers); err != nil {
			return err
		}
		answerCount = len(p.Answers)
	}

	correct := mc.CorrectAnswerLocalIDs
	if p.CorrectAnswerLocalIDs != nil {
		correct = p.CorrectAnswerLocalIDs
	}
	return validateCorrectSet(correct, answerCount)
}

func (h *MultipleChoiceHandler) ValidateUpdate(ctx context.Context, questionID int, payload json.RawMessage) error {
	var p model.MultipleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	return h.validateUpdate(ctx, questionID, p)
}

func (h *MultipleChoiceHandler) Update(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.MultipleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := h.validateUpdate(ctx, questionID, p); err != nil {
		return nil, err
	}
	if p.Answers != nil || p.CorrectAnswerLocalIDs != nil {
		if err := h.store.Update(ctx, questionID, p.CorrectAnswerLocalIDs, p.Answers); err != nil {
			return nil, fmt.Errorf("update multiple choice: %w", err)
		}
	}
	return h.Fetch(ctx, questionID)
}

func (h *MultipleChoiceHandler) Fetch(ctx context.Context, questionID int) (model.Variant, error) {
	mc, err := h.store.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return mc, nil
}

// Score awards full points when the number of checked answers that belong
// to the correct set equals the size of that set. Checked answers outside
// the set are not penalized.
func (h *MultipleChoiceHandler) Score(points int, variant model.Variant, selections []model.Selection) int {
	mc, ok := variant.(*model.MultipleChoice)
	if !ok {
		return 0
	}
	correct := make(map[int]struct{}, len(mc.CorrectAnswerLocalIDs))
	for _, id := range mc.CorrectAnswerLocalIDs {
		correct[id] = struct{}{}
	}

	hits := 0
	for _, s := range selections {
		if !s.IsChecked {
			continue
		}
		if _, ok := correct[s.LocalAnswerID]; ok {
			hits++
		}
	}
	if hits == len(mc.CorrectAnswerLocalIDs) {
		return points
	}
	return 0
}
