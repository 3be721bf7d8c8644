// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, tiers and utility functions

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "module not found",
			wantStr: "[NOT_FOUND] module not found",
		},
		{
			name:    "download_error",
			code:    errors.ErrDownloadFailed,
			message: "HTTP 404",
			wantStr: "[DOWNLOAD_FAILED] HTTP 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.NotNil(t, err.Details)
			assert.Equal(t, errors.TierItem, err.Tier)
			assert.Equal(t, tt.wantStr, err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	base := stderrors.New("connection refused")

	err := errors.Wrapf(base, errors.ErrAPIRequest, "search %s", "vocabularies")
	assert.Equal(t, "[API_REQUEST] search vocabularies: connection refused", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.Nil(t, errors.Wrap(nil, errors.ErrInternal, "nothing"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrInternal, "nothing %d", 1))
}

func TestIs(t *testing.T) {
	err := errors.New(errors.ErrFileWrite, "database.ini")
	assert.True(t, stderrors.Is(err, errors.New(errors.ErrFileWrite, "other")))
	assert.False(t, stderrors.Is(err, errors.New(errors.ErrFileCopy, "other")))
}

func TestErrorCodeHelpers(t *testing.T) {
	err := fmt.Errorf("outer: %w", errors.New(errors.ErrBridge, "php exited"))

	assert.True(t, errors.IsErrorCode(err, errors.ErrBridge))
	assert.False(t, errors.IsErrorCode(err, errors.ErrAPIRequest))
	assert.Equal(t, errors.ErrBridge, errors.GetErrorCode(err))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
}

func TestTier(t *testing.T) {
	t.Run("fatal_marks_error", func(t *testing.T) {
		err := errors.New(errors.ErrManifestNotFound, "distribution.json not found").Fatal()
		assert.True(t, errors.IsFatal(err))
		assert.True(t, errors.IsFatal(fmt.Errorf("run: %w", err)))
		assert.Equal(t, "fatal", err.Tier.String())
	})

	t.Run("item_is_not_fatal", func(t *testing.T) {
		err := errors.New(errors.ErrNotFound, "module missing")
		assert.False(t, errors.IsFatal(err))
		assert.Equal(t, "item", err.Tier.String())
	})

	t.Run("fatal_wrapped_inside_item", func(t *testing.T) {
		inner := errors.New(errors.ErrInstallFailed, "install").Fatal()
		outer := errors.Wrap(inner, errors.ErrInternal, "stage")
		assert.True(t, errors.IsFatal(outer))
	})

	t.Run("plain_error", func(t *testing.T) {
		assert.False(t, errors.IsFatal(stderrors.New("plain")))
		assert.False(t, errors.IsFatal(nil))
	})

	t.Run("with_detail", func(t *testing.T) {
		err := errors.New(errors.ErrNotFound, "x").WithDetail("module", "Mapping")
		assert.Equal(t, "Mapping", err.Details["module"])
	})
}

func TestMessage(t *testing.T) {
	inner := errors.New(errors.ErrBridge, "module.install: permission denied")
	outer := errors.Wrap(inner, errors.ErrInstallFailed, "Module installation failed")

	assert.Equal(t, "Module installation failed: module.install: permission denied", errors.Message(outer))
	assert.Equal(t, "Download failed: boom", errors.Message(errors.Wrap(stderrors.New("boom"), errors.ErrDownloadFailed, "Download failed")))
	assert.Equal(t, "plain", errors.Message(stderrors.New("plain")))
	assert.Equal(t, "", errors.Message(nil))
}
