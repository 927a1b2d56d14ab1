package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Error(t *testing.T) {
	plain := NewExitError(ExitFailure, "2 of 3 scenarios failed")
	assert.Equal(t, "2 of 3 scenarios failed", plain.Error())

	underlying := errors.New("no such file")
	wrapped := WrapExitError(ExitCommandError, "failed to load config", underlying)
	assert.Equal(t, "failed to load config: no such file", wrapped.Error())
	assert.Equal(t, underlying, errors.Unwrap(wrapped))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "findings")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	// Wrapped ExitErrors are still found via errors.As.
	wrapped := fmt.Errorf("context: %w", NewExitError(ExitFailure, "inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))

	// Non-ExitErrors default to the command-error code.
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.JSON(map[string]int{"total": 3}))

	out := buf.String()
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"total": 3`)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	var buf bytes.Buffer

	f := &OutputFormatter{Writer: &buf}
	f.VerboseLog("running %s", "scenario")
	assert.Empty(t, buf.String())

	f.Verbose = true
	f.VerboseLog("running %s", "scenario")
	assert.Equal(t, "running scenario\n", buf.String())
}
