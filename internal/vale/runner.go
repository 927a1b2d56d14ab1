// Package vale drives the external Vale binary.
//
// The binary is an opaque collaborator reached over a process boundary: the
// harness sends it flags and optional stdin bytes, and reads JSON results
// from stdout. Runner is the capability seam — production code binds it to
// a real subprocess via ExecRunner, tests bind it to a fake returning
// canned output without changing any contract above it.
package vale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// RuntimeFailureExit is the exit code threshold at which a Vale invocation
// is treated as a tool-level failure. Vale exits 0 for clean runs and 1
// when findings are reported; both are success at this layer because lint
// invocations always pass exit-suppressing flags.
const RuntimeFailureExit = 2

// Output captures one completed invocation of the binary.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner invokes the Vale binary with the given arguments and optional
// stdin bytes, blocking until the process exits. A nonzero exit code is
// reported through Output, not through the error: the error is reserved for
// failures to run the process at all.
type Runner interface {
	Invoke(ctx context.Context, args []string, stdin []byte) (Output, error)
}

// ExecRunner is the production Runner. It executes the resolved binary as
// a subprocess from the configured working directory.
type ExecRunner struct {
	// Bin is the resolved path of the Vale binary.
	Bin string

	// Dir is the working directory for invocations. Empty means the
	// current process's working directory.
	Dir string
}

// Invoke implements Runner via exec.CommandContext.
func (r *ExecRunner) Invoke(ctx context.Context, args []string, stdin []byte) (Output, error) {
	cmd := exec.CommandContext(ctx, r.Bin, args...)
	cmd.Dir = r.Dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Output{}, fmt.Errorf("failed to invoke %s: %w", r.Bin, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// BinaryNotFoundError is returned when the Vale executable cannot be
// located on PATH.
type BinaryNotFoundError struct {
	Binary string
}

// Error implements the error interface.
func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("couldn't find %q on PATH; install Vale or set an explicit binary path", e.Binary)
}

// ExecutionError is returned when Vale exits with a runtime failure
// (exit code >= RuntimeFailureExit). It carries the exit code and the
// decoded stderr so rule authors can see what Vale complained about.
type ExecutionError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("vale failed with exit code %d", e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Resolve locates the Vale binary on PATH. It fails with a
// *BinaryNotFoundError before any sandbox state is created, so a missing
// binary never leaves a partial environment behind.
func Resolve(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", &BinaryNotFoundError{Binary: binary}
	}
	return path, nil
}

// SupportsStdinFlag probes the binary's help output for --stdin support.
// Older Vale releases lint stdin implicitly; newer ones require the flag.
// The probe runs once per harness and the result is cached as immutable
// instance state.
func SupportsStdinFlag(ctx context.Context, r Runner) bool {
	out, err := r.Invoke(ctx, []string{"--help"}, nil)
	if err != nil {
		return false
	}
	help := DecodeText(out.Stdout) + DecodeText(out.Stderr)
	return strings.Contains(help, "--stdin")
}

// Run invokes the binary and applies the shared exit-code contract:
// exit codes below RuntimeFailureExit return the decoded stdout, anything
// at or above it fails with an *ExecutionError.
func Run(ctx context.Context, r Runner, args []string, stdin []byte) (string, error) {
	out, err := r.Invoke(ctx, args, stdin)
	if err != nil {
		return "", err
	}
	if out.ExitCode >= RuntimeFailureExit {
		return "", &ExecutionError{ExitCode: out.ExitCode, Stderr: DecodeText(out.Stderr)}
	}
	return DecodeText(out.Stdout), nil
}

// DecodeText converts process output to a string best-effort, replacing
// undecodable bytes with the Unicode replacement character rather than
// failing the run.
func DecodeText(b []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
