package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// readyMarker is written after a successful install; its existence is
	// the "template is complete" signal across process restarts.
	readyMarker = ".ready"

	defaultInstallTimeout = 5 * time.Minute
)

// Provisioner builds and caches one reusable compilation environment:
// pinned dependency manifest, compiler configuration, placeholder
// candidate, and an installed node_modules tree. Provisioning happens at
// most once per process; the template is read-only afterwards and serves
// as the copy source for every validation workspace.
type Provisioner struct {
	mu             sync.Mutex
	root           string
	installTimeout time.Duration
	provisioned    bool
	installErr     error

	// InstallFn is injectable for tests; defaults to npm install.
	InstallFn func(ctx context.Context, dir string) error
}

// NewProvisioner returns a provisioner rooted at dir. installTimeout <= 0
// selects the default. Nothing is created until the first EnsureTemplate
// call.
func NewProvisioner(dir string, installTimeout time.Duration) *Provisioner {
	if installTimeout <= 0 {
		installTimeout = defaultInstallTimeout
	}
	return &Provisioner{
		root:           dir,
		installTimeout: installTimeout,
		InstallFn:      runNpmInstall,
	}
}

// EnsureTemplate returns the template path, provisioning it on first use.
// Concurrent first callers serialize on the provisioner's lock: exactly one
// performs the install, the rest observe its completed state (or its
// error). An install failure is environment-fatal and sticky; it is
// returned to every subsequent caller without re-running the install.
func (p *Provisioner) EnsureTemplate(ctx context.Context) (string, error) {
	if p == nil {
		return "", fmt.Errorf("sandbox: provisioner is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.provisioned {
		return p.root, nil
	}
	if p.installErr != nil {
		return "", p.installErr
	}

	// A marker left by a previous process means dependencies are already
	// materialized on disk.
	if _, err := os.Stat(filepath.Join(p.root, readyMarker)); err == nil {
		p.provisioned = true
		return p.root, nil
	}

	if err := p.provisionLocked(ctx); err != nil {
		p.installErr = fmt.Errorf("sandbox: provision template: %w", err)
		return "", p.installErr
	}
	p.provisioned = true
	return p.root, nil
}

func (p *Provisioner) provisionLocked(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(p.root, "src"), 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"package.json":  packageJSON,
		"tsconfig.json": tsConfig,
		candidateFile:   wrapCandidate(placeholderBody),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(p.root, name), []byte(content), 0o644); err != nil {
			return err
		}
	}

	installCtx, cancel := context.WithTimeout(ctx, p.installTimeout)
	defer cancel()
	install := p.InstallFn
	if install == nil {
		install = runNpmInstall
	}
	if err := install(installCtx, p.root); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(p.root, readyMarker), []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}

// Reset clears the cached state so tests can drive provisioning again.
// It does not touch the filesystem.
func (p *Provisioner) Reset() {
	p.mu.Lock()
	p.provisioned = false
	p.installErr = nil
	p.mu.Unlock()
}

func runNpmInstall(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "npm", "install", "--no-audit", "--no-fund", "--loglevel=error")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("npm install: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
