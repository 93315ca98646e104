package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
	"github.com/stemsi/exstem-qbank/internal/validator"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// rawBody reads the request body for handing to a variant handler. The
// shape depends on the question type, so it is not bound to a struct here.
func rawBody(c *gin.Context) (json.RawMessage, bool) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}
	return body, true
}

// Create godoc
// POST /api/v1/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	view, err := h.questionService.Create(c.Request.Context(), middleware.GetCaller(c), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": view})
}

// Search godoc
// GET /api/v1/questions?term=&course_id=&page=&per_page=
func (h *QuestionHandler) Search(c *gin.Context) {
	var search model.QuestionSearch
	if fields := validator.BindQuery(c, &search); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, pagination, err := h.questionService.Search(c.Request.Context(), middleware.GetCaller(c), search)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// Get godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	view, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// Update godoc
// PATCH /api/v1/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}

	view, err := h.questionService.Update(c.Request.Context(), middleware.GetCaller(c), id, body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// Delete godoc
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question deleted successfully"})
}

// Approve godoc
// PATCH /api/v1/questions/:id/approve
func (h *QuestionHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Approve(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question approved"})
}

// Disapprove godoc
// PATCH /api/v1/questions/:id/disapprove
func (h *QuestionHandler) Disapprove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Disapprove(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question disapproved"})
}

// ListByExam godoc
// GET /api/v1/exams/:id/questions
func (h *QuestionHandler) ListByExam(c *gin.Context) {
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListByExam(c.Request.Context(), middleware.GetCaller(c), examID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListByCourse godoc
// GET /api/v1/courses/:id/questions
func (h *QuestionHandler) ListByCourse(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListByCourse(c.Request.Context(), middleware.GetCaller(c), courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Origins godoc
// GET /api/v1/origins
func (h *QuestionHandler) Origins(c *gin.Context) {
	origins, err := h.questionService.Origins(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"origins": origins})
}
