package vale

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner returns fixed output for every invocation.
type stubRunner struct {
	out  Output
	err  error
	args []string
}

func (r *stubRunner) Invoke(_ context.Context, args []string, _ []byte) (Output, error) {
	r.args = args
	return r.out, r.err
}

func TestRun_SuccessReturnsStdout(t *testing.T) {
	r := &stubRunner{out: Output{Stdout: []byte(`{"doc.md": []}`)}}

	out, err := Run(context.Background(), r, []string{"--output=JSON"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"doc.md": []}`, out)
}

// Exit code 1 means "findings reported" and is success at this layer.
func TestRun_ExitOneIsSuccess(t *testing.T) {
	r := &stubRunner{out: Output{Stdout: []byte(`[]`), ExitCode: 1}}

	out, err := Run(context.Background(), r, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, out)
}

func TestRun_RuntimeFailure(t *testing.T) {
	r := &stubRunner{out: Output{Stderr: []byte("E100 bad config"), ExitCode: 2}}

	_, err := Run(context.Background(), r, nil, nil)
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 2, execErr.ExitCode)
	assert.Equal(t, "E100 bad config", execErr.Stderr)
	assert.Contains(t, execErr.Error(), "exit code 2")
	assert.Contains(t, execErr.Error(), "E100 bad config")
}

func TestRun_InvokeErrorPropagates(t *testing.T) {
	boom := errors.New("spawn failed")
	r := &stubRunner{err: boom}

	_, err := Run(context.Background(), r, nil, nil)
	require.ErrorIs(t, err, boom)
}

func TestResolve_MissingBinary(t *testing.T) {
	_, err := Resolve("definitely-not-a-real-binary-name")
	require.Error(t, err)

	var notFound *BinaryNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "definitely-not-a-real-binary-name", notFound.Binary)
	assert.Contains(t, notFound.Error(), "install Vale")
}

func TestSupportsStdinFlag(t *testing.T) {
	withFlag := &stubRunner{out: Output{Stdout: []byte("Usage: vale ...\n  --stdin  lint stdin\n")}}
	assert.True(t, SupportsStdinFlag(context.Background(), withFlag))
	assert.Equal(t, []string{"--help"}, withFlag.args)

	withoutFlag := &stubRunner{out: Output{Stdout: []byte("Usage: vale ...\n")}}
	assert.False(t, SupportsStdinFlag(context.Background(), withoutFlag))

	// Help printed on stderr still counts.
	stderrHelp := &stubRunner{out: Output{Stderr: []byte("flags: --stdin\n")}}
	assert.True(t, SupportsStdinFlag(context.Background(), stderrHelp))

	failing := &stubRunner{err: errors.New("no binary")}
	assert.False(t, SupportsStdinFlag(context.Background(), failing))
}

func TestDecodeText_ReplacesInvalidBytes(t *testing.T) {
	out := DecodeText([]byte{'o', 'k', 0xff, '!'})
	assert.Equal(t, "ok�!", out)

	assert.Equal(t, "plain", DecodeText([]byte("plain")))
	assert.Equal(t, "", DecodeText(nil))
}
