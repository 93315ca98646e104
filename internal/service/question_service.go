package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/response"
)

const (
	minTextLength                  = 8
	maxTextLength                  = 512
	maxAdditionalInformationLength = 1024
	maxAnswerTextLength            = 512
	minPoints                      = 0
	maxPoints                      = 10
)

// QuestionStore persists question base records.
type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id int) (*model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	SetApproved(ctx context.Context, id int, approved bool) error
	Delete(ctx context.Context, id int) error
	ListByExam(ctx context.Context, examID int, onlyApproved bool) ([]model.Question, error)
	ListByCourse(ctx context.Context, courseID int, onlyApproved bool) ([]model.Question, error)
	ListBySession(ctx context.Context, sessionID int) ([]model.Question, error)
	Search(ctx context.Context, s model.QuestionSearch, limit, offset int) ([]model.Question, int, error)
	CountMatching(ctx context.Context, f model.QuestionFilter) (int, error)
}

// OriginStore reads the origin vocabulary.
type OriginStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]model.Origin, error)
}

// QuestionService creates, edits, moderates and materializes questions.
type QuestionService struct {
	questions QuestionStore
	origins   OriginStore
	registry  *Registry
	cache     ViewCache
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questions QuestionStore,
	origins OriginStore,
	registry *Registry,
	cache ViewCache,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		origins:   origins,
		registry:  registry,
		cache:     cache,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// sharedFields are the type-independent fields of create and update payloads.
type sharedFields struct {
	Text                  *string
	AdditionalInformation *string
	Points                *int
	CourseID              *int
	Origin                *string
}

// validateShared checks the shared fields in a fixed order and reports the
// first violation. With required set, absent fields are violations too.
func (s *QuestionService) validateShared(ctx context.Context, f sharedFields, required bool) error {
	if f.Text == nil {
		if required {
			return apperror.Conflict("question.text.required")
		}
	} else {
		n := utf8.RuneCountInString(*f.Text)
		if n < minTextLength {
			return apperror.Conflict("question.text.too_short").With("min", minTextLength)
		}
		if n > maxTextLength {
			return apperror.Conflict("question.text.too_long").With("max", maxTextLength)
		}
	}

	if f.AdditionalInformation != nil && utf8.RuneCountInString(*f.AdditionalInformation) > maxAdditionalInformationLength {
		return apperror.Conflict("question.additional_information.too_long").With("max", maxAdditionalInformationLength)
	}

	if f.Points == nil {
		if required {
			return apperror.Conflict("question.points.required")
		}
	} else {
		if *f.Points < minPoints {
			return apperror.Conflict("question.points.too_low").With("min", minPoints)
		}
		if *f.Points > maxPoints {
			return apperror.Conflict("question.points.too_high").With("max", maxPoints)
		}
	}

	if f.CourseID == nil && required {
		return apperror.Conflict("question.course_id.required")
	}

	if f.Origin == nil {
		if required {
			return apperror.Conflict("question.origin.required")
		}
		return nil
	}
	exists, err := s.origins.Exists(ctx, *f.Origin)
	if err != nil {
		return fmt.Errorf("check origin: %w", err)
	}
	if !exists {
		return apperror.Conflict("question.origin.unknown").With("origin", *f.Origin)
	}
	return nil
}

// Create validates the shared fields, stores the base and hands the payload
// to the variant handler. When the handler fails the base is deleted again.
func (s *QuestionService) Create(ctx context.Context, caller model.Caller, payload json.RawMessage) (*model.QuestionView, error) {
	var req model.CreateQuestionRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	if err := s.validateShared(ctx, sharedFields{
		Text:                  req.Text,
		AdditionalInformation: req.AdditionalInformation,
		Points:                req.Points,
		CourseID:              req.CourseID,
		Origin:                req.Origin,
	}, true); err != nil {
		return nil, err
	}

	if req.Type == nil {
		return nil, apperror.Conflict("question.type.required")
	}
	handler, ok := s.registry.Dispatch(*req.Type)
	if !ok {
		return nil, apperror.Conflict("question.type.unknown").With("type", *req.Type)
	}

	q := &model.Question{
		Text:                  *req.Text,
		Type:                  *req.Type,
		AdditionalInformation: req.AdditionalInformation,
		Points:                *req.Points,
		ExamID:                req.ExamID,
		CourseID:              *req.CourseID,
		CreatorID:             caller.UserID,
		Origin:                *req.Origin,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	variant, err := handler.Create(ctx, q.ID, payload)
	if err != nil {
		if delErr := s.questions.Delete(ctx, q.ID); delErr != nil {
			s.log.Error().
				Err(delErr).
				AnErr("cause", err).
				Int("question_id", q.ID).
				Msg("Failed to delete question base after variant creation failed")
			return nil, apperror.Inconsistent("question.rollback_failed", errors.Join(err, delErr)).With("question_id", q.ID)
		}
		return nil, err
	}

	s.log.Info().Int("question_id", q.ID).Str("type", string(q.Type)).Int("creator_id", caller.UserID).Msg("Question created")
	return &model.QuestionView{Question: *q, Variant: variant}, nil
}

func (s *QuestionService) load(ctx context.Context, id int) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("question.not_found").With("id", id)
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func canEdit(caller model.Caller, q *model.Question) bool {
	return q.CreatorID == caller.UserID || caller.IsModerator()
}

// Update applies the present shared fields and the variant update. Every
// update clears the approval flag.
func (s *QuestionService) Update(ctx context.Context, caller model.Caller, id int, payload json.RawMessage) (*model.QuestionView, error) {
	q, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(caller, q) {
		return nil, apperror.Forbidden("question.update.forbidden")
	}

	var req model.UpdateQuestionRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if err := s.validateShared(ctx, sharedFields{
		Text:                  req.Text,
		AdditionalInformation: req.AdditionalInformation,
		Points:                req.Points,
		CourseID:              req.CourseID,
		Origin:                req.Origin,
	}, false); err != nil {
		return nil, err
	}

	handler, ok := s.registry.Dispatch(q.Type)
	if !ok {
		return nil, apperror.Conflict("question.type.unknown").With("type", q.Type)
	}
	if err := handler.ValidateUpdate(ctx, id, payload); err != nil {
		return nil, err
	}

	if req.Text != nil {
		q.Text = *req.Text
	}
	if req.AdditionalInformation != nil {
		q.AdditionalInformation = req.AdditionalInformation
	}
	if req.Points != nil {
		q.Points = *req.Points
	}
	if req.ExamID != nil {
		q.ExamID = req.ExamID
	}
	if req.CourseID != nil {
		q.CourseID = *req.CourseID
	}
	if req.Origin != nil {
		q.Origin = *req.Origin
	}
	updater := caller.UserID
	q.UpdaterID = &updater
	q.IsApproved = false

	if err := s.questions.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	// Invalidate after the variant write, success or not: a Get in between
	// would cache the new base with the old variant.
	defer s.invalidate(ctx, id)

	variant, err := handler.Update(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	return &model.QuestionView{Question: *q, Variant: variant}, nil
}

// Get returns the materialized view of a question. A question whose type has
// no handler, or whose extension is missing, is returned without a variant.
func (s *QuestionService) Get(ctx context.Context, id int) (*model.QuestionView, error) {
	if s.cache != nil {
		view, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Int("question_id", id).Msg("Question cache read failed")
		} else if view != nil {
			return view, nil
		}
	}

	q, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &model.QuestionView{Question: *q}
	if handler, ok := s.registry.Dispatch(q.Type); ok {
		variant, err := handler.Fetch(ctx, id)
		switch {
		case err == nil:
			view.Variant = variant
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return nil, fmt.Errorf("fetch %s variant: %w", q.Type, err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			s.log.Warn().Err(err).Int("question_id", id).Msg("Question cache write failed")
		}
	}
	return view, nil
}

// Approve marks a question as approved. Moderators may not approve a
// question they updated last; admins may.
func (s *QuestionService) Approve(ctx context.Context, caller model.Caller, id int) error {
	if !caller.IsModerator() {
		return apperror.Forbidden("question.approve.forbidden")
	}
	q, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && q.UpdaterID != nil && *q.UpdaterID == caller.UserID {
		return apperror.Forbidden("question.approve.own_update")
	}
	if err := s.questions.SetApproved(ctx, id, true); err != nil {
		return fmt.Errorf("approve question: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// Disapprove clears the approval flag.
func (s *QuestionService) Disapprove(ctx context.Context, caller model.Caller, id int) error {
	if !caller.IsModerator() {
		return apperror.Forbidden("question.approve.forbidden")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.questions.SetApproved(ctx, id, false); err != nil {
		return fmt.Errorf("disapprove question: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes a question together with everything that references it.
func (s *QuestionService) Delete(ctx context.Context, caller model.Caller, id int) error {
	q, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(caller, q) {
		return apperror.Forbidden("question.delete.forbidden")
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// ListByExam lists an exam's questions; non-moderators see approved ones only.
func (s *QuestionService) ListByExam(ctx context.Context, caller model.Caller, examID int) ([]model.Question, error) {
	questions, err := s.questions.ListByExam(ctx, examID, !caller.IsModerator())
	if err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	return nonNil(questions), nil
}

// ListByCourse lists a course's questions; non-moderators see approved ones only.
func (s *QuestionService) ListByCourse(ctx context.Context, caller model.Caller, courseID int) ([]model.Question, error) {
	questions, err := s.questions.ListByCourse(ctx, courseID, !caller.IsModerator())
	if err != nil {
		return nil, fmt.Errorf("list course questions: %w", err)
	}
	return nonNil(questions), nil
}

// ListBySession lists a session's questions in local id order.
func (s *QuestionService) ListBySession(ctx context.Context, sessionID int) ([]model.Question, error) {
	questions, err := s.questions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}
	return nonNil(questions), nil
}

// CountMatching counts the approved questions a session with filter f would receive.
func (s *QuestionService) CountMatching(ctx context.Context, f model.QuestionFilter) (int, error) {
	return s.questions.CountMatching(ctx, f)
}

// Search runs the catalogue search with pagination. Non-moderators only
// ever see approved questions.
func (s *QuestionService) Search(ctx context.Context, caller model.Caller, search model.QuestionSearch) ([]model.Question, *response.Pagination, error) {
	page, perPage := normalizePage(search.Page, search.PerPage)
	if !caller.IsModerator() {
		search.OnlyApproved = true
	}

	questions, total, err := s.questions.Search(ctx, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return nonNil(questions), response.NewPagination(page, perPage, total), nil
}

// Origins lists the origin vocabulary.
func (s *QuestionService) Origins(ctx context.Context) ([]model.Origin, error) {
	origins, err := s.origins.List(ctx)
	if err != nil {
		return nil, err
	}
	if origins == nil {
		origins = []model.Origin{}
	}
	return origins, nil
}

func (s *QuestionService) invalidate(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Int("question_id", id).Msg("Question cache invalidation failed")
	}
}

func nonNil(questions []model.Question) []model.Question {
	if questions == nil {
		return []model.Question{}
	}
	return questions
}
