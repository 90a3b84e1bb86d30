package refresh

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNoopRefresher_AlwaysSucceeds(t *testing.T) {
	if err := (NoopRefresher{}).Refresh(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

// fakeGit installs a stub "git" executable on PATH that records its
// arguments and exits 0, so GitRefresher can be exercised without a real
// network or git repository.
func fakeGit(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script assumes a POSIX shell")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nexit 0\n"
	path := filepath.Join(dir, "git")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestGitRefresher_ClonesWhenLocalPathMissing(t *testing.T) {
	fakeGit(t)
	dir := t.TempDir()
	g := &GitRefresher{RepoURL: "https://example.invalid/registry.git", LocalPath: filepath.Join(dir, "registry")}
	if err := g.Refresh(context.Background()); err != nil {
		t.Errorf("expected clone to succeed against stub git, got %v", err)
	}
}

func TestGitRefresher_PullsWhenLocalPathExists(t *testing.T) {
	fakeGit(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "registry")
	if err := os.Mkdir(local, 0o755); err != nil {
		t.Fatal(err)
	}
	g := &GitRefresher{RepoURL: "https://example.invalid/registry.git", LocalPath: local}
	if err := g.Refresh(context.Background()); err != nil {
		t.Errorf("expected pull to succeed against stub git, got %v", err)
	}
}
