package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/weather-export/pkg/errors"
)

// statusClientClosedRequest reports a request abandoned by the caller.
const statusClientClosedRequest = 499

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError maps an AppError code to a status. The message never includes the
// wrapped cause so driver errors stay in the logs.
func fromDomainError(err error, fallbackCode string) *HTTPError {
	code := apperrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case "invalid_input", "invalid_date_range":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "query_timeout", "provider_unavailable":
		status = http.StatusServiceUnavailable
	case "provider_error":
		status = http.StatusBadGateway
	case "canceled":
		status = statusClientClosedRequest
	case "":
		code = fallbackCode
	}
	return NewHTTPError(status, code, apperrors.PublicMessage(err, "something went wrong"), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
