package service

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// VariantHandler owns the answer schema of one question type. Payloads are
// the raw request bodies; each handler decodes the fields it needs.
type VariantHandler interface {
	Type() model.QuestionType
	// Create validates the payload and persists the extension for an
	// already stored question base.
	Create(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error)
	// ValidateUpdate checks an update payload against the stored extension
	// without writing anything.
	ValidateUpdate(ctx context.Context, questionID int, payload json.RawMessage) error
	Update(ctx context.Context, questionID int, payload json.RawMessage) (model.Variant, error)
	Fetch(ctx context.Context, questionID int) (model.Variant, error)
}

// Scorer is implemented by handlers whose questions earn points from selections.
type Scorer interface {
	Score(points int, variant model.Variant, selections []model.Selection) int
}

// Selectable is implemented by handlers whose answers accept selections.
type Selectable interface {
	// MaxChecked is the number of answers that may be checked at once; 0 means any.
	MaxChecked() int
}

// Registry dispatches question type tags to their handlers.
type Registry struct {
	handlers map[model.QuestionType]VariantHandler
}

// NewRegistry builds a registry over the given handlers.
func NewRegistry(handlers ...VariantHandler) *Registry {
	r := &Registry{handlers: make(map[model.QuestionType]VariantHandler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// Dispatch returns the handler registered for t.
func (r *Registry) Dispatch(t model.QuestionType) (VariantHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []model.QuestionType {
	types := make([]model.QuestionType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func decodePayload(payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperror.BadRequest("question.payload.malformed", err)
	}
	return nil
}

// checkCount validates a list length against [lo, hi].
func checkCount(prefix string, n, lo, hi int) error {
	if n < lo {
		return apperror.Conflict(prefix + ".not_enough").With("min", lo)
	}
	if n > hi {
		return apperror.Conflict(prefix + ".too_many").With("max", hi)
	}
	return nil
}

func checkTexts(prefix string, texts []string) error {
	for i, t := range texts {
		if len([]rune(t)) > maxAnswerTextLength {
			return apperror.Conflict(prefix+".too_long").With("position", i+1).With("max", maxAnswerTextLength)
		}
	}
	return nil
}

// checkLocalID validates that id references one of count options.
func checkLocalID(rule string, id, count int) error {
	if id < 1 || id > count {
		return apperror.Conflict(rule).With("id", id).With("max", count)
	}
	return nil
}
