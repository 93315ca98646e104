package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/response"
)

var kindStatus = map[apperror.Kind]struct {
	status int
	code   response.ErrCode
}{
	apperror.KindNotFound:           {http.StatusNotFound, response.ErrNotFound},
	apperror.KindValidationConflict: {http.StatusConflict, response.ErrValidationConflict},
	apperror.KindForbidden:          {http.StatusForbidden, response.ErrForbidden},
	apperror.KindInconsistent:       {http.StatusInternalServerError, response.ErrInconsistentState},
	apperror.KindBadRequest:         {http.StatusBadRequest, response.ErrInvalidPayload},
}

// respondError renders a service error. Rule violations carry their rule and
// params in error.fields; anything else is logged and reported as internal.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	mapped, ok := kindStatus[appErr.Kind]
	if !ok {
		mapped.status, mapped.code = http.StatusInternalServerError, response.ErrInternal
	}
	if appErr.Kind == apperror.KindInconsistent {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("rule", appErr.Rule).
			Msg("Request left inconsistent state")
	}

	fields := map[string]string{"rule": appErr.Rule}
	for k, v := range appErr.Params {
		fields[k] = fmt.Sprint(v)
	}
	response.FailWithFields(c, mapped.status, mapped.code, fields)
}

// paramID parses a positive integer path parameter. On failure it writes the
// error response and returns false.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter, returning def when absent.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
