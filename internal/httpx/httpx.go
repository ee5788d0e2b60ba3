// Package httpx writes the JSON error envelope shared by handlers and
// middleware.
package httpx

import (
	"errors"
	"net/http"

	"projecthub/internal/apperr"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Error   string        `json:"error"`
	Code    apperr.Code   `json:"code"`
	Details *ErrorDetails `json:"details,omitempty"`
}

type ErrorDetails struct {
	FieldErrors map[string]string `json:"fieldErrors"`
}

func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body builds the envelope for err. Internal errors never expose their message.
func Body(err error) ErrorBody {
	code := apperr.CodeOf(err)
	body := ErrorBody{Code: code, Error: "Internal server error"}
	if code != apperr.CodeInternal {
		body.Error = messageOf(err)
	}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body.Details = &ErrorDetails{FieldErrors: fields}
	}
	return body
}

// Abort writes err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(apperr.CodeOf(err)), Body(err))
}

func messageOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
