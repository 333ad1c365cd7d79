package perrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodesSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("create task: %w", NewErrValidation("due_date", "due date is in the past"))

	assert.True(t, IsValidation(err))
	assert.False(t, IsPermission(err))
	assert.False(t, IsNotFound(err))

	var e Err
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "due_date", e.Field)
	assert.Equal(t, http.StatusBadRequest, e.HttpStatus())
}

func TestErrIsComparesCodes(t *testing.T) {
	a := NewErrNotFound("task", 7)
	b := NewErrNotFound("project", 9)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, NewErrPermission("nope")))
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("disk full")
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.False(t, IsNotFound(nil))
}

func TestAuditWriteKeepsCause(t *testing.T) {
	cause := errors.New("constraint failed")
	err := NewErrAuditWrite("write history", cause)

	assert.True(t, IsAuditWrite(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "constraint failed")
}
