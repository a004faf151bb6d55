package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeStorageError, "upsert failed", cause)

	require.True(t, IsCode(err, CodeStorageError))
	require.False(t, IsCode(err, CodeInvalidInput))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "upsert failed: boom", err.Error())
}

func TestCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("sync: %w", Wrap(CodeSyncInProgress, "sync already running", nil))
	require.Equal(t, CodeSyncInProgress, Code(err))
	require.Equal(t, "", Code(errors.New("plain")))
}
