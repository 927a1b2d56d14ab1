// Package testutil provides deterministic test doubles for the harness.
//
// The fake runner replaces the real Vale subprocess with canned output so
// harness, scenario, and CLI tests run without a Vale binary installed and
// produce identical results on every run.
package testutil

import (
	"context"

	"github.com/roach88/valedate/internal/vale"
)

// Call records one non-probe invocation made through a FakeRunner.
type Call struct {
	Args  []string
	Stdin []byte
}

// FakeRunner is a vale.Runner returning scripted output.
//
// Probe invocations (argv equal to ["--help"]) return HelpText and are not
// recorded, so tests can control the stdin-flag capability independently of
// the lint responses. Every other invocation is recorded in Calls and
// consumes the next element of Outputs; when Outputs runs dry the last
// element repeats, and an empty Outputs yields a clean empty-result run.
//
// FakeRunner is not safe for concurrent use, matching the harness's own
// single-threaded contract.
type FakeRunner struct {
	// HelpText is returned on stdout for --help probes. Include "--stdin"
	// to simulate a binary that supports the explicit stdin flag.
	HelpText string

	// Outputs are the scripted results for lint/sync invocations, in order.
	Outputs []vale.Output

	// Err, when set, is returned from every non-probe invocation.
	Err error

	// Calls holds the recorded non-probe invocations.
	Calls []Call

	next int
}

// Invoke implements vale.Runner.
func (r *FakeRunner) Invoke(_ context.Context, args []string, stdin []byte) (vale.Output, error) {
	if len(args) == 1 && args[0] == "--help" {
		return vale.Output{Stdout: []byte(r.HelpText)}, nil
	}

	r.Calls = append(r.Calls, Call{Args: append([]string(nil), args...), Stdin: stdin})

	if r.Err != nil {
		return vale.Output{}, r.Err
	}
	if len(r.Outputs) == 0 {
		return vale.Output{Stdout: []byte("{}")}, nil
	}

	out := r.Outputs[r.next]
	if r.next < len(r.Outputs)-1 {
		r.next++
	}
	return out, nil
}

// LastCall returns the most recent recorded invocation, or nil when none
// have been made.
func (r *FakeRunner) LastCall() *Call {
	if len(r.Calls) == 0 {
		return nil
	}
	return &r.Calls[len(r.Calls)-1]
}

// JSONOutput builds a successful vale.Output carrying the given stdout.
func JSONOutput(stdout string) vale.Output {
	return vale.Output{Stdout: []byte(stdout)}
}

// FailureOutput builds a runtime-failure vale.Output with the given exit
// code and stderr text.
func FailureOutput(exitCode int, stderr string) vale.Output {
	return vale.Output{Stderr: []byte(stderr), ExitCode: exitCode}
}
