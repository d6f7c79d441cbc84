package credential

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitConfigurer changes the user's global git configuration.
type GitConfigurer interface {
	SetGlobal(ctx context.Context, key, value string) error
}

// ExecGitConfig runs the git binary found in PATH (or Binary when set).
type ExecGitConfig struct {
	Binary string
}

func (g ExecGitConfig) SetGlobal(ctx context.Context, key, value string) error {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "config", "--global", key, value)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("git config --global %s: %w: %s", key, err, msg)
		}
		return fmt.Errorf("git config --global %s: %w", key, err)
	}
	return nil
}
