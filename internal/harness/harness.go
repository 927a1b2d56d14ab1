package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/valedate/internal/config"
	"github.com/roach88/valedate/internal/diag"
	"github.com/roach88/valedate/internal/styles"
	"github.com/roach88/valedate/internal/vale"
)

// Defaults for harness construction.
const (
	// DefaultBinary is the conventional Vale executable name, resolved
	// via PATH when no explicit path is given.
	DefaultBinary = "vale"

	// DefaultStdinExt is the extension associated with stdin content so
	// Vale selects the right lexer and scopes.
	DefaultStdinExt = ".md"
)

// stylesDirName is the sandbox-relative styles directory. The config file's
// StylesPath directive always points here, regardless of caller input.
const stylesDirName = "styles"

// Options configures a Harness.
type Options struct {
	// Config is the .vale.ini input: raw text, a file path, or a
	// structured mapping. Required.
	Config config.Source

	// Styles is an optional style tree to materialize into the sandbox.
	// Nil means only Vale's built-in styles are available.
	Styles styles.Source

	// Binary is the Vale executable name or path. Defaults to
	// DefaultBinary, resolved on PATH.
	Binary string

	// StdinExt is the default extension for stdin linting. Defaults to
	// DefaultStdinExt.
	StdinExt string

	// AutoSync runs `vale sync` once after setup when the configuration
	// declares a Packages directive.
	AutoSync bool

	// MinAlertLevel is the default severity floor applied to every lint
	// operation unless overridden per call. Empty means no floor.
	MinAlertLevel string

	// Runner overrides the subprocess launcher. When nil, the Binary is
	// resolved on PATH and executed for real. Tests substitute a fake
	// returning canned JSON without changing any other contract.
	Runner vale.Runner

	// Logger receives debug-level sandbox lifecycle events. Nil discards.
	Logger *slog.Logger
}

// Harness owns a temporary Vale sandbox: an ephemeral directory holding a
// .vale.ini and a styles/ subtree, plus the resolved binary and its probed
// capabilities.
//
// Each harness instance owns its sandbox exclusively for its lifetime.
// Operations are synchronous and blocking; concurrent calls on one instance
// require external synchronization. Release the sandbox with Cleanup,
// typically via defer:
//
//	h, err := harness.New(ctx, harness.Options{Config: cfg, Styles: rules})
//	if err != nil {
//	    return err
//	}
//	defer h.Cleanup()
type Harness struct {
	root          string
	iniPath       string
	runner        vale.Runner
	stdinExt      string
	minAlertLevel string

	// stdinFlag caches the one-time --help probe for --stdin support.
	// Computed at construction, immutable thereafter.
	stdinFlag bool

	logger  *slog.Logger
	cleaned bool
}

// New builds a Vale sandbox from the supplied configuration.
//
// Setup order: resolve the binary (before any disk state is created),
// create the sandbox directory, probe the binary's flag support,
// materialize styles, normalize and write the config with a forced
// StylesPath, then optionally run `vale sync`. If any step after directory
// creation fails, the partially-built sandbox is removed before the error
// propagates; only on full success does ownership transfer to the returned
// harness.
func New(ctx context.Context, opts Options) (*Harness, error) {
	if opts.Config == nil {
		return nil, errors.New("harness: Config is required")
	}

	binary := opts.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	stdinExt := opts.StdinExt
	if stdinExt == "" {
		stdinExt = DefaultStdinExt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runner := opts.Runner
	var resolved string
	if runner == nil {
		var err error
		resolved, err = vale.Resolve(binary)
		if err != nil {
			return nil, err
		}
	}

	root, err := os.MkdirTemp("", "valedate-")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	// Rollback until ownership transfers on full success.
	owned := false
	defer func() {
		if !owned {
			os.RemoveAll(root)
		}
	}()

	if runner == nil {
		runner = &vale.ExecRunner{Bin: resolved, Dir: root}
	}

	h := &Harness{
		root:          root,
		iniPath:       filepath.Join(root, ".vale.ini"),
		runner:        runner,
		stdinExt:      stdinExt,
		minAlertLevel: opts.MinAlertLevel,
		logger:        logger,
	}
	h.stdinFlag = vale.SupportsStdinFlag(ctx, runner)

	stylesDir := filepath.Join(root, stylesDirName)
	if err := os.MkdirAll(stylesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create styles directory: %w", err)
	}
	if err := styles.Materialize(stylesDir, opts.Styles); err != nil {
		return nil, err
	}

	text, err := config.Render(opts.Config)
	if err != nil {
		return nil, err
	}
	text = config.ForceStylesPath(text, stylesDirName)
	if err := os.WriteFile(h.iniPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	if opts.AutoSync && config.DeclaresPackages(text) {
		if _, err := h.run(ctx, []string{"sync"}, nil); err != nil {
			return nil, fmt.Errorf("failed to sync packages: %w", err)
		}
	}

	h.logger.Debug("sandbox ready",
		"root", root,
		"stdin_flag", h.stdinFlag,
	)

	owned = true
	return h, nil
}

// Root returns the sandbox directory path.
func (h *Harness) Root() string { return h.root }

// ConfigPath returns the path of the sandbox's .vale.ini file.
func (h *Harness) ConfigPath() string { return h.iniPath }

// LintOption adjusts a single lint operation.
type LintOption func(*lintOptions)

type lintOptions struct {
	ext           string
	minAlertLevel string
}

// WithExt overrides the stdin extension for one Lint call, so Vale applies
// the content rules for that format instead of the harness default.
func WithExt(ext string) LintOption {
	return func(o *lintOptions) { o.ext = ext }
}

// WithMinAlertLevel overrides the severity floor for one lint operation.
func WithMinAlertLevel(level string) LintOption {
	return func(o *lintOptions) { o.minAlertLevel = level }
}

// Lint runs Vale over in-memory text via its standard-input mode and
// returns the ordered diagnostics for the piped input. An empty slice means
// Vale reported nothing.
func (h *Harness) Lint(ctx context.Context, text string, opts ...LintOption) ([]diag.Diagnostic, error) {
	o := h.lintOptions(opts)

	args := []string{
		"--no-global",
		"--no-exit",
		"--output=JSON",
		"--ext=" + o.ext,
	}
	if h.stdinFlag {
		args = append(args, "--stdin")
	}
	if o.minAlertLevel != "" {
		args = append(args, "--minAlertLevel="+o.minAlertLevel)
	}

	out, err := h.run(ctx, args, []byte(text))
	if err != nil {
		return nil, err
	}
	byPath, err := diag.Decode(out)
	if err != nil {
		return nil, err
	}

	// Stdin linting yields a single synthetic source; return its
	// diagnostics, or an empty slice when Vale reported nothing at all.
	for _, diags := range byPath {
		return diags, nil
	}
	return []diag.Diagnostic{}, nil
}

// LintPath runs Vale over a file or directory and returns diagnostics
// grouped by the path Vale reported, which may differ from the argument
// (Vale normalizes paths relative to its working directory).
func (h *Harness) LintPath(ctx context.Context, path string, opts ...LintOption) (map[string][]diag.Diagnostic, error) {
	o := h.lintOptions(opts)

	args := []string{"--no-global", "--no-exit", "--output=JSON"}
	if o.minAlertLevel != "" {
		args = append(args, "--minAlertLevel="+o.minAlertLevel)
	}
	args = append(args, path)

	out, err := h.run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	return diag.Decode(out)
}

// Cleanup removes the sandbox directory tree. It is idempotent: the second
// and later calls are no-ops. Callers release the sandbox deterministically
// with defer h.Cleanup(), which runs on every exit path.
func (h *Harness) Cleanup() error {
	if h.cleaned {
		return nil
	}
	h.cleaned = true
	if err := os.RemoveAll(h.root); err != nil {
		return fmt.Errorf("failed to remove sandbox: %w", err)
	}
	h.logger.Debug("sandbox removed", "root", h.root)
	return nil
}

func (h *Harness) lintOptions(opts []LintOption) lintOptions {
	o := lintOptions{
		ext:           h.stdinExt,
		minAlertLevel: h.minAlertLevel,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// run invokes Vale with the sandbox config plus the given arguments,
// applying the shared exit-code contract from the vale package.
func (h *Harness) run(ctx context.Context, args []string, stdin []byte) (string, error) {
	argv := append([]string{"--config=" + h.iniPath}, args...)
	h.logger.Debug("invoking vale", "args", argv)
	return vale.Run(ctx, h.runner, argv, stdin)
}
