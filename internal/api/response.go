package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/bytedance/sonic"

	"github.com/tgienger/taskboard/internal/perrors"
)

// Response is the envelope of every API reply
type Response[T any] struct {
	ctx          context.Context
	ErrorDetails *perrors.Err `json:"errorDetails,omitempty"`
	Error        bool         `json:"error"`
	Message      string       `json:"message"`
	Data         T            `json:"data"`
	Status       int          `json:"status"`
}

func NewResponse[T any](ctx context.Context, msg string, data T) *Response[T] {
	return &Response[T]{
		ctx:     ctx,
		Message: msg,
		Data:    data,
		Status:  http.StatusOK,
	}
}

// WithError sets the error details and status from err. Errors that are not
// perrors.Err become internal errors.
func (r *Response[T]) WithError(err error) *Response[T] {
	var perr perrors.Err
	if !errors.As(err, &perr) {
		perr = perrors.NewErrInternal(r.Message, err).(perrors.Err)
	}

	r.Status = perr.HttpStatus()
	r.ErrorDetails = &perr
	r.Error = true
	if perr.Code.Status >= http.StatusInternalServerError {
		perr.Print(loggerFrom(r.ctx))
	} else {
		r.Message = perr.Message
	}
	return r
}

// WithStatus overrides the status code; prefer errors that carry their own status
func (r *Response[T]) WithStatus(code int) *Response[T] {
	r.Status = code
	return r
}

// Write encodes the response as JSON
func (r *Response[T]) Write(w http.ResponseWriter) {
	body, err := json.Marshal(r)
	if err != nil {
		loggerFrom(r.ctx).WithError(err).Error("unable to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Status)
	w.Write(body)
}

func writeOK(w http.ResponseWriter, r *http.Request, message string, data any) {
	NewResponse(r.Context(), message, data).Write(w)
}

func writeCreated(w http.ResponseWriter, r *http.Request, message string, data any) {
	NewResponse(r.Context(), message, data).WithStatus(http.StatusCreated).Write(w)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	NewResponse[any](r.Context(), "request failed", nil).WithError(err).Write(w)
}

// decode reads a JSON request body into v
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return perrors.NewErrValidation("body", "unable to read request body")
	}
	if len(body) == 0 {
		return perrors.NewErrValidation("body", "request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return perrors.NewErrValidation("body", "request body is not valid JSON")
	}
	return nil
}
