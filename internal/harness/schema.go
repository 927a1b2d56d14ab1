package harness

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed scenario_schema.cue
var scenarioSchemaCUE string

// scenarioSchema compiles the embedded schema once. The CUE context and the
// compiled value are immutable after initialization.
var scenarioSchema = sync.OnceValues(func() (cue.Value, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchemaCUE, cue.Filename("scenario_schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to compile scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to resolve #Scenario: %w", err)
	}
	return def, nil
})

// validateScenarioSchema unifies the scenario YAML with the embedded CUE
// schema. CUE errors carry file positions, so a typoed field or a
// wrong-typed value points at the offending line of the scenario file.
func validateScenarioSchema(path string, data []byte) error {
	def, err := scenarioSchema()
	if err != nil {
		return err
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	doc := def.Context().BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to build scenario value: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Final()); err != nil {
		return fmt.Errorf("scenario schema violation:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}
