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

const (
	minChoiceAnswers = 2
	maxChoiceAnswers = 10
)

// SingleChoiceStore persists single-choice extensions.
type SingleChoiceStore interface {
	Create(ctx context.Context, questionID, correctLocalID int, answers []string) error
	Get(ctx context.Context, questionID int) (*model.SingleChoice, error)
	Update(ctx context.Context, questionID int, correctLocalID *int, answers []string) error
}

// SingleChoiceHandler implements questions with exactly one correct answer.
type SingleChoiceHandler struct {
	store SingleChoiceStore
}

// NewSingleChoiceHandler creates a new SingleChoiceHandler.
func NewSingleChoiceHandler(store SingleChoiceStore) *SingleChoiceHandler {
	return &SingleChoiceHandler{store: store}
}

func (h *SingleChoiceHandler) Type() model.QuestionType { return model.QuestionTypeSingleChoice }

func (h *SingleChoiceHandler) MaxChecked() int { return 1 }

func validateChoiceAnswers(prefix string, answers []string) error {
	if answers == nil {
		return apperror.Conflict(prefix + ".answers.required")
	}
	if err := checkCount(prefix+".answers", len(answers), minChoiceAnswers, maxChoiceAnswers); err != nil {
		return err
	}
	return checkTexts(prefix+".answers", answers)
}

func validateSingleChoiceCreate(p model.SingleChoicePayload) error {
	if err := validateChoiceAnswers("single_choice", p.Answers); err != nil {
		return err
	}
	if p.CorrectAnswerLocalID == nil {
		return apperror.Conflict("single_choice.correct_answer.required")
	}
	if *p.CorrectAnswerLocalID < 1 {
		return apperror.Conflict("single_choice.correct_answer.too_low")
	}
	return checkLocalID("single_choice.correct_answer.out_of_range", *p.CorrectAnswerLocalID, len(p.Answers))
}

func (h *SingleChoiceHandler) Create(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.SingleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := validateSingleChoiceCreate(p); err != nil {
		return nil, err
	}
	if err := h.store.Create(ctx, questionID, *p.CorrectAnswerLocalID, p.Answers); err != nil {
		return nil, fmt.Errorf("create single choice: %w", err)
	}
	return h.Fetch(ctx, questionID)
}

func (h *SingleChoiceHandler) current(ctx context.Context, questionID int) (*model.SingleChoice, error) {
	sc, err := h.store.Get(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("single_choice.not_found")
		}
		return nil, fmt.Errorf("get single choice: %w", err)
	}
	return sc, nil
}

func (h *SingleChoiceHandler) validateUpdate(ctx context.Context, questionID int, p model.SingleChoicePayload) error {
	if p.Answers == nil && p.CorrectAnswerLocalID == nil {
		return nil
	}
	sc, err := h.current(ctx, questionID)
	if err != nil {
		return err
	}
	count := len(sc.Answers)

	if p.Answers != nil {
		if err := validateChoiceAnswers("single_choice", p.Answers); err != nil {
			return err
		}
		if len(p.Answers) != count {
			return apperror.Conflict("single_choice.answers.count_changed").With("expected", count)
		}
	}
	if p.CorrectAnswerLocalID != nil {
		if *p.CorrectAnswerLocalID < 1 {
			return apperror.Conflict("single_choice.correct_answer.too_low")
		}
		return checkLocalID("single_choice.correct_answer.out_of_range", *p.CorrectAnswerLocalID, count)
	}
	return nil
}

func (h *SingleChoiceHandler) ValidateUpdate(ctx context.Context, questionID int, payload json.RawMessage) error {
	var p model.SingleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	return h.validateUpdate(ctx, questionID, p)
}

func (h *SingleChoiceHandler) Update(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.SingleChoicePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := h.validateUpdate(ctx, questionID, p); err != nil {
		return nil, err
	}
	if p.Answers != nil || p.CorrectAnswerLocalID != nil {
		if err := h.store.Update(ctx, questionID, p.CorrectAnswerLocalID, p.Answers); err != nil {
			return nil, fmt.Errorf("update single choice: %w", err)
		}
	}
	return h.Fetch(ctx, questionID)
}

func (h *SingleChoiceHandler) Fetch(ctx context.Context, questionID int) (model.Variant, error) {
	sc, err := h.store.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// Score awards full points when the first checked answer is the correct one.
func (h *SingleChoiceHandler) Score(points int, variant model.Variant, selections []model.Selection) int {
	sc, ok := variant.(*model.SingleChoice)
	if !ok {
		return 0
	}
	for _, s := range selections {
		if !s.IsChecked {
			continue
		}
		if s.LocalAnswerID == sc.CorrectAnswerLocalID {
			return points
		}
		return 0
	}
	return 0
}
