package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// MarshalResult renders a Result as stable, indented JSON for golden
// comparison. encoding/json writes map keys in sorted order, so path-keyed
// diagnostics serialize deterministically.
func MarshalResult(result *Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// RunWithGolden executes a scenario and compares its JSON-rendered result
// against the golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts RunOptions) error {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result against the golden file
// named for the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalResult(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
