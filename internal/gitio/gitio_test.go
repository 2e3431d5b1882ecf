package gitio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"patvc/internal/util"
)

func setupRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	return dir, wt
}

func commitFile(t *testing.T, wt *git.Worktree, dir, name, content, message string, when time.Time) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("failed to stage %s: %v", name, err)
	}
	if _, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: when},
	}); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestFileHistory(t *testing.T) {
	dir, wt := setupRepo(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	commitFile(t, wt, dir, "main.js", "rev A\n", "first", base)
	commitFile(t, wt, dir, "other.txt", "unrelated\n", "touch other file", base.Add(1*time.Minute))
	commitFile(t, wt, dir, "main.js", "rev B\n", "second", base.Add(2*time.Minute))
	commitFile(t, wt, dir, "main.js", "rev C\n", "third\n\nwith a body", base.Add(3*time.Minute))

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}

	revs, err := repo.FileHistory("main.js")
	if err != nil {
		t.Fatalf("FileHistory failed: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(revs))
	}

	wantContents := []string{"rev A\n", "rev B\n", "rev C\n"}
	wantMessages := []string{"first", "second", "third"}
	for i, rev := range revs {
		if rev.Content != wantContents[i] {
			t.Errorf("revision %d content = %q, expected %q", i, rev.Content, wantContents[i])
		}
		if rev.Message != wantMessages[i] {
			t.Errorf("revision %d message = %q, expected %q", i, rev.Message, wantMessages[i])
		}
		if rev.Digest != util.Blake3HashHex([]byte(rev.Content)) {
			t.Errorf("revision %d digest does not match its content", i)
		}
		if len(rev.Hash) != 40 {
			t.Errorf("revision %d hash %q is not a full commit hash", i, rev.Hash)
		}
	}
	if revs[0].When >= revs[2].When {
		t.Errorf("revisions not in chronological order: %d >= %d", revs[0].When, revs[2].When)
	}
}

func TestFileHistory_MissingFile(t *testing.T) {
	dir, wt := setupRepo(t)
	commitFile(t, wt, dir, "main.js", "rev A\n", "first", time.Now())

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}

	revs, err := repo.FileHistory("absent.js")
	if err != nil {
		t.Fatalf("FileHistory failed: %v", err)
	}
	if len(revs) != 0 {
		t.Errorf("expected no revisions for an untracked path, got %d", len(revs))
	}
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error opening a plain directory")
	}
}

func TestOldestFirst_CollapsesRuns(t *testing.T) {
	newestFirst := []*Revision{
		{Hash: "d", Digest: "2"},
		{Hash: "c", Digest: "1"},
		{Hash: "b", Digest: "1"},
		{Hash: "a", Digest: "0"},
	}

	got := oldestFirst(newestFirst)

	want := []string{"a", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d revisions, got %d", len(want), len(got))
	}
	for i, rev := range got {
		if rev.Hash != want[i] {
			t.Errorf("revision %d = %s, expected %s", i, rev.Hash, want[i])
		}
	}

	if got := oldestFirst(nil); len(got) != 0 {
		t.Errorf("expected empty result for empty input, got %d", len(got))
	}
}
