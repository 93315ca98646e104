package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
	"github.com/stemsi/exstem-qbank/internal/validator"
)

// SessionHandler handles session lifecycle and answering endpoints.
type SessionHandler struct {
	sessionService   *service.SessionService
	selectionService *service.SelectionService
	log              zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, selectionService *service.SelectionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService:   sessionService,
		selectionService: selectionService,
		log:              log.With().Str("component", "session_handler").Logger(),
	}
}

// sessionQuestionParams parses :id and :local_id.
func sessionQuestionParams(c *gin.Context) (int, int, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	localID, ok := paramID(c, "local_id")
	if !ok {
		return 0, 0, false
	}
	return id, localID, true
}

// Create godoc
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, assigned, err := h.sessionService.Create(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": session, "question_count": assigned})
}

// Get godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Update godoc
// PATCH /api/v1/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Update(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Delete godoc
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "session deleted successfully"})
}

// ListByUser godoc
// GET /api/v1/users/:id/sessions?page=&per_page=
func (h *SessionHandler) ListByUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sessions, pagination, err := h.sessionService.ListByUser(
		c.Request.Context(),
		middleware.GetCaller(c),
		userID,
		queryInt(c, "page", 1),
		queryInt(c, "per_page", 0),
	)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, pagination)
}

// CountMatching godoc
// GET /api/v1/sessions/count?module_id=&type=&text=
// Previews how many questions a session with this filter would receive.
func (h *SessionHandler) CountMatching(c *gin.Context) {
	var filter model.QuestionFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, err := h.sessionService.CountMatching(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// CountQuestions godoc
// GET /api/v1/sessions/:id/count
func (h *SessionHandler) CountQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	count, err := h.sessionService.CountQuestions(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// Questions godoc
// GET /api/v1/sessions/:id/questions
func (h *SessionHandler) Questions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.sessionService.Questions(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// QuestionAt godoc
// GET /api/v1/sessions/:id/questions/:local_id
func (h *SessionHandler) QuestionAt(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	view, err := h.sessionService.QuestionAt(c.Request.Context(), middleware.GetCaller(c), id, localID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// QuestionStatus godoc
// GET /api/v1/sessions/:id/questions/:local_id/status
func (h *SessionHandler) QuestionStatus(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	status, err := h.sessionService.QuestionStatus(c.Request.Context(), middleware.GetCaller(c), id, localID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": status})
}

// GetSelection godoc
// GET /api/v1/sessions/:id/questions/:local_id/selection
func (h *SessionHandler) GetSelection(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	selections, err := h.selectionService.GetSelections(c.Request.Context(), middleware.GetCaller(c), id, localID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"selections": selections})
}

// SetSelection godoc
// PUT /api/v1/sessions/:id/questions/:local_id/selection
// Rewrites the checked and crossed state of every answer of the question.
func (h *SessionHandler) SetSelection(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	var req model.SetSelectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	selections, err := h.selectionService.SetSelection(c.Request.Context(), middleware.GetCaller(c), id, localID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"selections": selections})
}

// SetTime godoc
// PUT /api/v1/sessions/:id/questions/:local_id/time
func (h *SessionHandler) SetTime(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	var req model.AddTimeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.AddTime(c.Request.Context(), middleware.GetCaller(c), id, localID, *req.Time); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "time recorded"})
}

// SubmitQuestion godoc
// PATCH /api/v1/sessions/:id/questions/:local_id/submit
func (h *SessionHandler) SubmitQuestion(c *gin.Context) {
	id, localID, ok := sessionQuestionParams(c)
	if !ok {
		return
	}

	if err := h.sessionService.SubmitQuestion(c.Request.Context(), middleware.GetCaller(c), id, localID); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "question submitted"})
}

// Submit godoc
// PATCH /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.Submit(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "session submitted"})
}

// Reset godoc
// PATCH /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.sessionService.Reset(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "session reset"})
}

// Results godoc
// GET /api/v1/sessions/:id/results
func (h *SessionHandler) Results(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.sessionService.Results(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}
