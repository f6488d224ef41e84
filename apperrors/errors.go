package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yashrajoria/catalog-service/catalog"

	"github.com/gin-gonic/gin"
)

// Error is the JSON error body returned by every handler.
type Error struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Err       error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, "bad_request", message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, "not_found", message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal_error", "Internal server error", err)
}

// FromCatalog maps catalog engine failures onto HTTP errors.
func FromCatalog(err error) *Error {
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, catalog.ErrNotFound):
		return NotFound("Category not found")
	case errors.Is(err, catalog.ErrCycleDetected):
		return New(http.StatusInternalServerError, "category_cycle", "Category tree is inconsistent", err)
	case errors.Is(err, catalog.ErrStorageTimeout):
		e := New(http.StatusServiceUnavailable, "storage_timeout", "Catalog storage timed out", err)
		e.Retryable = true
		return e
	case errors.Is(err, catalog.ErrStorageUnavailable):
		e := New(http.StatusServiceUnavailable, "storage_unavailable", "Catalog storage unavailable", err)
		e.Retryable = true
		return e
	}
	return Internal(err)
}

// ErrorMiddleware renders the last error attached with c.Error.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := FromCatalog(c.Errors.Last().Err)
		c.AbortWithStatusJSON(appErr.Status, appErr)
	}
}
