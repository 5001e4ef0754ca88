// Package apierror maps domain errors onto HTTP responses.
package apierror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrTooLarge     = errors.New("payload too large")
	ErrUpstream     = errors.New("upstream service failed")
)

const (
	// FallbackMessage is shown for anything without a more specific message.
	FallbackMessage    = "Ein Fehler ist aufgetreten"
	RateLimitedMessage = "Possibly the OpenAI API limit was reached"
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with msg as its text that matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Response is the JSON body of every error reply.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// Respond writes err as JSON. Client errors keep their message, server
// errors are logged and replaced by the fallback text.
func Respond(c *gin.Context, err error) {
	status, code := Status(err)

	resp := Response{Error: code, Message: err.Error()}
	switch {
	case status == http.StatusTooManyRequests:
		resp.Message = RateLimitedMessage
	case status >= 500:
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"err", err,
		)
		resp.Message = FallbackMessage
		if status == http.StatusBadGateway {
			resp.Details = err.Error()
		}
	}

	c.AbortWithStatusJSON(status, resp)
}

// BadRequest is a shortcut for request-binding failures.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Error: "BAD_REQUEST", Message: msg})
}
