package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alphaexam/alphaexam-backend/internal/middleware"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// serviceErrors maps domain errors to HTTP status and envelope code.
// Order matters only for errors that wrap one another.
var serviceErrors = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrInvalidToken, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrExamNotAvailable, http.StatusNotFound, response.ErrExamNotAvailable},
	{service.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{service.ErrExamLocked, http.StatusPaymentRequired, response.ErrExamLocked},
	{service.ErrAttemptNotActive, http.StatusConflict, response.ErrAttemptNotActive},
	{service.ErrNoActiveAttempt, http.StatusConflict, response.ErrNoActiveAttempt},
	{service.ErrAttemptUnfinished, http.StatusConflict, response.ErrAttemptUnfinished},
	{service.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidOption},
	{service.ErrUnknownQuestion, http.StatusBadRequest, response.ErrUnknownQuestion},
	{service.ErrDuplicateOrder, http.StatusConflict, response.ErrDuplicateOrder},
	{service.ErrAttemptInProgress, http.StatusConflict, response.ErrAttemptInProgress},
	{service.ErrInsufficientCredits, http.StatusPaymentRequired, response.ErrInsufficientCredits},
	{service.ErrAlreadyPurchased, http.StatusConflict, response.ErrAlreadyPurchased},
	{service.ErrExamIsFree, http.StatusBadRequest, response.ErrExamIsFree},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},
	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
}

// classify returns the status and code for err, defaulting to 500.
func classify(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the envelope for a service error. Unmapped errors are
// attached to the context so the request logger records them.
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// identity returns the caller or writes a 401 and reports false.
func identity(c *gin.Context) (service.Identity, bool) {
	ident, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return ident, ok
}

// paramUUID parses a path parameter or writes a 400 and reports false.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}
