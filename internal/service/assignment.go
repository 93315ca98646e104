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
	minAssignmentItems = 2
	maxAssignmentItems = 26
)

// AssignmentStore persists assignment extensions.
type AssignmentStore interface {
	Create(ctx context.Context, questionID int, identifiers []string, correctLocalIDs []int, answers []string) error
	Get(ctx context.Context, questionID int) (*model.Assignment, error)
	ReplaceIdentifierTexts(ctx context.Context, questionID int, texts []string) error
	ReplaceAnswers(ctx context.Context, questionID int, answers []string) error
	SetCorrectAnswers(ctx context.Context, questionID int, correctLocalIDs []int) error
}

// AssignmentHandler implements questions that pair identifiers with answers.
// It has no scoring rule and does not accept selections.
type AssignmentHandler struct {
	store AssignmentStore
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(store AssignmentStore) *AssignmentHandler {
	return &AssignmentHandler{store: store}
}

func (h *AssignmentHandler) Type() model.QuestionType { return model.QuestionTypeAssignment }

func validateAssignmentItems(prefix string, items []string) error {
	if items == nil {
		return apperror.Conflict(prefix + ".required")
	}
	if err := checkCount(prefix, len(items), minAssignmentItems, maxAssignmentItems); err != nil {
		return err
	}
	return checkTexts(prefix, items)
}

func validateCorrectAssignments(correct []int, identifierCount, answerCount int) error {
	if len(correct) != identifierCount {
		return apperror.Conflict("assignment.correct_ids.length_mismatch").With("expected", identifierCount)
	}
	for _, id := range correct {
		if err := checkLocalID("assignment.correct_ids.out_of_range", id, answerCount); err != nil {
			return err
		}
	}
	return nil
}

func validateAssignmentCreate(p model.AssignmentPayload) error {
	if err := validateAssignmentItems("assignment.identifiers", p.Identifiers); err != nil {
		return err
	}
	if err := validateAssignmentItems("assignment.answers", p.Answers); err != nil {
		return err
	}
	if len(p.Identifiers) > len(p.Answers) {
		return apperror.Conflict("assignment.identifiers.more_than_answers")
	}
	if p.CorrectAssignmentIDs == nil {
		return apperror.Conflict("assignment.correct_ids.required")
	}
	return validateCorrectAssignments(p.CorrectAssignmentIDs, len(p.Identifiers), len(p.Answers))
}

func (h *AssignmentHandler) Create(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.AssignmentPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := validateAssignmentCreate(p); err != nil {
		return nil, err
	}
	if err := h.store.Create(ctx, questionID, p.Identifiers, p.CorrectAssignmentIDs, p.Answers); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return h.Fetch(ctx, questionID)
}

// changeCount returns how many of the independently updatable parts are present.
func changeCount(p model.AssignmentPayload) int {
	n := 0
	if p.Identifiers != nil {
		n++
	}
	if p.Answers != nil {
		n++
	}
	if p.CorrectAssignmentIDs != nil {
		n++
	}
	return n
}

func (h *AssignmentHandler) validateUpdate(ctx context.Context, questionID int, p model.AssignmentPayload) error {
	switch changeCount(p) {
	case 0:
		return nil
	case 1:
	default:
		return apperror.Conflict("assignment.update.too_many_changes")
	}

	a, err := h.store.Get(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("assignment.not_found")
		}
		return fmt.Errorf("get assignment: %w", err)
	}

	switch {
	case p.Identifiers != nil:
		if err := validateAssignmentItems("assignment.identifiers", p.Identifiers); err != nil {
			return err
		}
		if len(p.Identifiers) != len(a.Identifiers) {
			return apperror.Conflict("assignment.identifiers.count_changed").With("expected", len(a.Identifiers))
		}
	case p.Answers != nil:
		if err := validateAssignmentItems("assignment.answers", p.Answers); err != nil {
			return err
		}
		if len(a.Identifiers) > len(p.Answers) {
			return apperror.Conflict("assignment.identifiers.more_than_answers")
		}
		for _, ident := range a.Identifiers {
			if err := checkLocalID("assignment.correct_ids.out_of_range", ident.CorrectAnswerLocalID, len(p.Answers)); err != nil {
				return err
			}
		}
	default:
		return validateCorrectAssignments(p.CorrectAssignmentIDs, len(a.Identifiers), len(a.Answers))
	}
	return nil
}

func (h *AssignmentHandler) ValidateUpdate(ctx context.Context, questionID int, payload json.RawMessage) error {
	var p model.AssignmentPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	return h.validateUpdate(ctx, questionID, p)
}

func (h *AssignmentHandler) Update(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error) {
	var p model.AssignmentPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := h.validateUpdate(ctx, questionID, p); err != nil {
		return nil, err
	}

	var err error
	switch {
	case p.Identifiers != nil:
		err = h.store.ReplaceIdentifierTexts(ctx, questionID, p.Identifiers)
	case p.Answers != nil:
		err = h.store.ReplaceAnswers(ctx, questionID, p.Answers)
	case p.CorrectAssignmentIDs != nil:
		err = h.store.SetCorrectAnswers(ctx, questionID, p.CorrectAssignmentIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	return h.Fetch(ctx, questionID)
}

func (h *AssignmentHandler) Fetch(ctx context.Context, questionID int) (model.Variant, error) {
	a, err := h.store.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return a, nil
}
