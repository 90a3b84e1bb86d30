// Package refresh implements the external collaborator that keeps the
// on-disk registry tree current (§4.8 step 1). Failure is logged and the
// cycle proceeds with whatever is already on disk.
package refresh

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Refresher updates a local registry checkout in place.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// GitRefresher clones repoURL into localPath on first run, or runs
// "git pull" there on subsequent cycles.
type GitRefresher struct {
	RepoURL   string
	LocalPath string
}

// Refresh performs one clone-or-pull cycle.
func (g *GitRefresher) Refresh(ctx context.Context) error {
	if _, err := os.Stat(g.LocalPath); os.IsNotExist(err) {
		cmd := exec.CommandContext(ctx, "git", "clone", g.RepoURL, g.LocalPath)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("refresh: git clone: %w: %s", err, out)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, "git", "-C", g.LocalPath, "pull", "--ff-only")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("refresh: git pull: %w: %s", err, out)
	}
	return nil
}

// NoopRefresher performs no refresh, for do_git_pull: false.
type NoopRefresher struct{}

// Refresh does nothing and always succeeds.
func (NoopRefresher) Refresh(ctx context.Context) error { return nil }
