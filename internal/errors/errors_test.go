package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewConfigError("SALES_DATA_FILE is required", nil),
			wantMessage: "[CONFIG] SALES_DATA_FILE is required",
		},
		{
			name:        "error with cause",
			appError:    NewInputError("malformed CSV", fmt.Errorf("line 3: wrong number of fields")),
			wantMessage: "[INPUT] malformed CSV: line 3: wrong number of fields",
		},
		{
			name:        "not found",
			appError:    NewNotFoundError("sales data file sales.csv"),
			wantMessage: "[NOT_FOUND] sales data file sales.csv not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := NewOutputError("write workbook", os.ErrPermission)

	assert.True(t, errors.Is(appErr, os.ErrPermission))
	assert.Equal(t, os.ErrPermission, appErr.Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	appErr := &AppError{Type: ErrTypeTransform, Message: "missing column"}

	appErr.WithContext("column", "TotalPrice").WithContext("report", "Summary")

	require.NotNil(t, appErr.Context)
	assert.Equal(t, "TotalPrice", appErr.Context["column"])
	assert.Equal(t, "Summary", appErr.Context["report"])
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("run pipeline: %w", NewTransformError("missing measure column", nil))

	assert.Equal(t, ErrTypeTransform, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrTypeTransform))
	assert.False(t, IsType(wrapped, ErrTypeOutput))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "config", err: NewConfigError("bad", nil), want: ExitConfig},
		{name: "input", err: NewInputError("bad", nil), want: ExitInput},
		{name: "not found counts as input", err: NewNotFoundError("file"), want: ExitInput},
		{name: "transform", err: fmt.Errorf("wrap: %w", NewTransformError("bad", nil)), want: ExitTransform},
		{name: "output", err: NewOutputError("bad", nil), want: ExitOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
