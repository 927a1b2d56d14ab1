package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/valedate/internal/testutil"
	"github.com/roach88/valedate/internal/vale"
)

func TestRunWithGolden_PassingScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, `
name: no_foo_in_docs
description: "NoFoo flags the token in a linted file"
config:
  __root__: {MinAlertLevel: suggestion}
  "[*.md]": {BasedOnStyles: Test}
styles:
  Test/NoFoo.yml: "extends: existence\ntokens: [foo]\n"
files:
  doc.md: "foo bar\n"
steps:
  - lint_path: doc.md
    expect:
      count: 1
`))
	require.NoError(t, err)

	runner := &testutil.FakeRunner{
		Outputs: []vale.Output{testutil.JSONOutput(
			`{"doc.md": [{"Check": "Test.NoFoo", "Message": "Avoid 'foo'.", "Severity": "warning", "Line": 1, "Span": [1, 3], "Match": "foo"}]}`,
		)},
	}

	require.NoError(t, RunWithGolden(t, scenario, RunOptions{Runner: runner}))
}

func TestRunWithGolden_FailingScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, `
name: missing_rule_fails
description: "an unmet expectation is captured in the result"
config:
  __root__: {MinAlertLevel: suggestion}
files:
  doc.md: "clean text\n"
steps:
  - lint_path: doc.md
    expect:
      count: 1
`))
	require.NoError(t, err)

	runner := &testutil.FakeRunner{
		Outputs: []vale.Output{testutil.JSONOutput(`{}`)},
	}

	require.NoError(t, RunWithGolden(t, scenario, RunOptions{Runner: runner}))
}
