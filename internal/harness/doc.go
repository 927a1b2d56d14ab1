// Package harness provides an isolated sandbox for testing Vale rules.
//
// The harness materializes a temporary styles/ tree, writes a bespoke
// .vale.ini, shells out to the Vale CLI, and decodes JSON diagnostics into
// typed structures. It depends on a vale binary being reachable; no mock is
// shipped for production use because the goal is to exercise Vale exactly
// as it runs for real (tests substitute a fake runner at the process seam).
//
// # Sandbox Lifecycle
//
// New builds the sandbox transactionally: the binary is resolved before any
// disk state exists, and a failure in any later setup step removes the
// partially-built directory before the error reaches the caller. Cleanup is
// idempotent and is normally deferred:
//
//	h, err := harness.New(ctx, harness.Options{
//	    Config: config.Map{
//	        config.RootSection: map[string]any{"MinAlertLevel": "suggestion"},
//	        "*.md":             map[string]any{"BasedOnStyles": "Test"},
//	    },
//	    Styles: styles.Tree{"Test/NoFoo.yml": rule},
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Cleanup()
//
//	diags, err := h.Lint(ctx, "foo should trigger a diagnostic.")
//
// # Scenario Format
//
// Rule expectations can also be written declaratively in YAML scenario
// files, validated against an embedded CUE schema:
//
//	name: no_foo_warns
//	description: "NoFoo flags the token at warning level"
//	config:
//	  __root__: { MinAlertLevel: suggestion }
//	  "*.md":   { BasedOnStyles: Test }
//	styles:
//	  Test/NoFoo.yml: |
//	    extends: existence
//	    message: "Avoid 'foo'."
//	    level: warning
//	    tokens: [foo]
//	steps:
//	  - lint: "foo should trigger a diagnostic."
//	    expect:
//	      count: 1
//	      diagnostics:
//	        - check: Test.NoFoo
//	          line: 1
//	          severity: warning
//
// Run executes every step against a real (or faked) Vale and returns a
// Result suitable for CLI reporting and golden snapshot comparison.
package harness
