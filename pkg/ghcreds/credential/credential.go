package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/telekom/gh-scoped-creds/pkg/metrics"
)

const (
	ModeFile      = "file"
	ModeGitConfig = "git-config"

	// DefaultPath is the credentials file used in file mode when no path is given.
	DefaultPath = "/tmp/github-app-git-credentials"

	helperKey = "credential.https://github.com.helper"
)

// Line is the git-credentials store entry for token.
func Line(token string) string {
	return "https://x-access-token:" + token + "@github.com\n"
}

// Result describes where a credential ended up.
type Result struct {
	Mode string
	Path string
}

// Sink persists a token for git.
type Sink interface {
	Persist(ctx context.Context, token string) (Result, error)
}

// PersistenceError is returned when the credential could not be stored.
type PersistenceError struct {
	Mode string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to persist credential (%s mode, %s): %v", e.Mode, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to persist credential (%s mode): %v", e.Mode, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FileSink writes the credential line to Path, replacing any previous content.
type FileSink struct {
	Path   string
	Logger *zap.SugaredLogger
}

func (s *FileSink) Persist(ctx context.Context, token string) (Result, error) {
	path := strings.TrimSpace(s.Path)
	if path == "" {
		path = DefaultPath
	}
	res := Result{Mode: ModeFile, Path: path}
	if err := ctx.Err(); err != nil {
		return res, s.fail(path, err)
	}
	if err := writePrivate(path, Line(token)); err != nil {
		return res, s.fail(path, err)
	}
	metrics.CredentialWrites.WithLabelValues(ModeFile, "success").Inc()
	logger(s.Logger).Debugw("Wrote git credentials file", "path", path)
	return res, nil
}

func (s *FileSink) fail(path string, err error) error {
	metrics.CredentialWrites.WithLabelValues(ModeFile, "error").Inc()
	return &PersistenceError{Mode: ModeFile, Path: path, Err: err}
}

// GitConfigSink writes the credential line to a new private file in Dir and
// registers it as the store helper for github.com.
type GitConfigSink struct {
	// Dir defaults to os.TempDir().
	Dir    string
	Git    GitConfigurer
	Logger *zap.SugaredLogger
}

func (s *GitConfigSink) Persist(ctx context.Context, token string) (Result, error) {
	res := Result{Mode: ModeGitConfig}
	if s.Git == nil {
		return res, s.fail("", errors.New("no git configurer"))
	}
	if err := ctx.Err(); err != nil {
		return res, s.fail("", err)
	}
	f, err := os.CreateTemp(s.Dir, "gh-scoped-creds-*")
	if err != nil {
		return res, s.fail("", fmt.Errorf("creating credentials file: %w", err))
	}
	res.Path = f.Name()
	if err := writeAndClose(f, Line(token)); err != nil {
		_ = os.Remove(res.Path)
		return res, s.fail(res.Path, err)
	}
	if err := s.Git.SetGlobal(ctx, helperKey, "store --file="+res.Path); err != nil {
		_ = os.Remove(res.Path)
		return res, s.fail(res.Path, fmt.Errorf("registering credential helper: %w", err))
	}
	metrics.CredentialWrites.WithLabelValues(ModeGitConfig, "success").Inc()
	logger(s.Logger).Debugw("Registered git credential helper", "key", helperKey, "path", res.Path)
	return res, nil
}

func (s *GitConfigSink) fail(path string, err error) error {
	metrics.CredentialWrites.WithLabelValues(ModeGitConfig, "error").Inc()
	return &PersistenceError{Mode: ModeGitConfig, Path: path, Err: err}
}

// writePrivate creates a 0600 temp file next to path and renames it into
// place, so path never holds partial content or broader permissions. A
// symlinked path is written through to its target.
func writePrivate(path, content string) error {
	resolved, err := filepath.EvalSymlinks(path)
	switch {
	case err == nil:
		path = resolved
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	if err := writeAndClose(f, content); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func writeAndClose(f *os.File, content string) error {
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return fmt.Errorf("restricting permissions: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing credential: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing credential: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing credential file: %w", err)
	}
	return nil
}

func logger(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
