package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
)

type span string

func (s span) String() string { return string(s) }

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("add interval: %w", apperr.Validation("date is required"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "add interval: date is required", err.Error())
	assert.True(t, apperr.IsCallerError(err))
}

func TestOverlapConflictCarriesIntervals(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &apperr.OverlapConflictError{
		Candidate:   span("09:29:00-10:00:00"),
		Conflicting: span("09:00:00-09:30:00"),
	})
	require.ErrorIs(t, err, apperr.ErrOverlap)

	var conflict *apperr.OverlapConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "09:00:00-09:30:00", conflict.Conflicting.String())
}

func TestStoreErrorHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused to 10.0.0.5")
	err := apperr.Store("upsert log", cause)

	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "10.0.0.5")
	assert.False(t, apperr.IsCallerError(err))

	assert.Same(t, err, apperr.Store("again", err))
	assert.Nil(t, apperr.Store("noop", nil))
}

func TestCaptureParseError(t *testing.T) {
	err := &apperr.CaptureParseError{Reference: "shots/abc.png"}
	assert.ErrorIs(t, err, apperr.ErrCaptureParse)
	assert.Contains(t, err.Error(), "shots/abc.png")
}
