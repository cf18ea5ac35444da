package sandbox

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"reelsmith/internal/compose"
)

const (
	defaultCompileTimeout = 15 * time.Second
	verdictCacheSize      = 256
)

const timeoutDiagnostic = "compilation timeout, code may be too complex"

// Validator type-checks one candidate at a time inside a disposable copy of
// the provisioned template. It satisfies compose.Validator.
type Validator struct {
	prov           *Provisioner
	compileTimeout time.Duration
	verdicts       *lru.Cache[string, compose.ValidationResult]

	// CompileFn is injectable for tests; defaults to npx tsc --noEmit.
	CompileFn func(ctx context.Context, dir string) (stderr, stdout []byte, exitCode int, err error)
}

// NewValidator builds a validator over the given provisioner. timeout <= 0
// selects the default compile timeout.
func NewValidator(prov *Provisioner, timeout time.Duration) (*Validator, error) {
	if prov == nil {
		return nil, fmt.Errorf("sandbox: provisioner is required")
	}
	if timeout <= 0 {
		timeout = defaultCompileTimeout
	}
	verdicts, err := lru.New[string, compose.ValidationResult](verdictCacheSize)
	if err != nil {
		return nil, err
	}
	return &Validator{
		prov:           prov,
		compileTimeout: timeout,
		verdicts:       verdicts,
		CompileFn:      runTypeCheck,
	}, nil
}

// Validate copies the template into a fresh workspace, injects the
// candidate, and runs the type checker. Compile diagnostics and timeouts
// come back as an invalid ValidationResult; a non-nil error means the
// environment itself is unusable. The workspace is removed on every exit
// path.
func (v *Validator) Validate(ctx context.Context, code string) (compose.ValidationResult, error) {
	if v == nil {
		return compose.ValidationResult{}, fmt.Errorf("sandbox: validator is nil")
	}

	wrapped := wrapCandidate(code)
	key := verdictKey(wrapped)
	if res, ok := v.verdicts.Get(key); ok {
		return res, nil
	}

	template, err := v.prov.EnsureTemplate(ctx)
	if err != nil {
		return compose.ValidationResult{}, err
	}

	workspace, err := os.MkdirTemp(filepath.Dir(template), "reelsmith-ws-")
	if err != nil {
		return compose.ValidationResult{}, fmt.Errorf("sandbox: create workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	if err := copyTree(template, workspace); err != nil {
		return compose.ValidationResult{}, fmt.Errorf("sandbox: copy template: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, candidateFile), []byte(wrapped), 0o644); err != nil {
		return compose.ValidationResult{}, fmt.Errorf("sandbox: write candidate: %w", err)
	}

	compileCtx, cancel := context.WithTimeout(ctx, v.compileTimeout)
	defer cancel()
	compile := v.CompileFn
	if compile == nil {
		compile = runTypeCheck
	}
	stderr, stdout, exitCode, err := compile(compileCtx, workspace)
	if errors.Is(compileCtx.Err(), context.DeadlineExceeded) {
		// The subprocess was already killed by the context; this is an
		// ordinary failed verdict, not an environment error. Not cached:
		// the same candidate may well finish under less load.
		return compose.ValidationResult{Valid: false, Diagnostic: timeoutDiagnostic}, nil
	}
	if err != nil {
		return compose.ValidationResult{}, fmt.Errorf("sandbox: type checker unavailable: %w", err)
	}

	res := reduceVerdict(stderr, stdout, exitCode)
	v.verdicts.Add(key, res)
	return res, nil
}

// reduceVerdict maps compiler streams and exit code onto a verdict. An
// invalid result always carries a non-empty diagnostic.
func reduceVerdict(stderr, stdout []byte, exitCode int) compose.ValidationResult {
	if exitCode == 0 {
		return compose.ValidationResult{Valid: true}
	}
	diag := strings.TrimSpace(string(stderr))
	if diag == "" {
		diag = strings.TrimSpace(string(stdout))
	}
	if diag == "" {
		diag = fmt.Sprintf("type checker exited with code %d", exitCode)
	}
	return compose.ValidationResult{Valid: false, Diagnostic: diag}
}

func verdictKey(wrapped string) string {
	sum := sha256.Sum256([]byte(wrapped))
	return hex.EncodeToString(sum[:])
}

// runTypeCheck runs the TypeScript compiler in check-only mode in dir. A
// non-zero compiler exit is reported via exitCode with err nil; err is
// reserved for the toolchain being absent or unrunnable.
func runTypeCheck(ctx context.Context, dir string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, "npx", "tsc", "--noEmit", "--pretty", "false")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stderr.Bytes(), stdout.Bytes(), exitErr.ExitCode(), nil
		}
		return stderr.Bytes(), stdout.Bytes(), -1, err
	}
	return stderr.Bytes(), stdout.Bytes(), 0, nil
}
