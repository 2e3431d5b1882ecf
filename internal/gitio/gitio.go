// Package gitio reads file revision history from Git repositories using
// go-git, so existing history can be imported as pattern snapshots.
package gitio

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"patvc/internal/util"
)

// Revision is one historical state of a file.
type Revision struct {
	Hash    string // commit hash
	Content string
	Digest  string // BLAKE3 hex of Content
	When    int64  // author time, epoch ms
	Message string // first line of the commit message
}

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing Git repository.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Repository{repo: repo, path: repoPath}, nil
}

// FileHistory returns the revisions of a file reachable from HEAD,
// oldest-first. Commits where the file is absent are skipped, and
// consecutive revisions with identical content are collapsed so the
// result tracks content changes rather than raw commits.
func (r *Repository) FileHistory(path string) ([]*Revision, error) {
	iter, err := r.repo.Log(&git.LogOptions{FileName: &path})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	// Log iterates newest-first; collect and reverse below.
	var newestFirst []*Revision
	err = iter.ForEach(func(commit *object.Commit) error {
		content, err := fileContents(commit, path)
		if err != nil {
			return nil // file absent in this commit
		}
		newestFirst = append(newestFirst, &Revision{
			Hash:    commit.Hash.String(),
			Content: content,
			Digest:  util.Blake3HashHex([]byte(content)),
			When:    commit.Author.When.UnixMilli(),
			Message: firstLine(commit.Message),
		})
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("walking log: %w", err)
	}

	return oldestFirst(newestFirst), nil
}

// oldestFirst reverses a newest-first revision list and collapses runs of
// identical content, keeping the earliest commit of each run.
func oldestFirst(newestFirst []*Revision) []*Revision {
	revisions := make([]*Revision, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		rev := newestFirst[i]
		if n := len(revisions); n > 0 && revisions[n-1].Digest == rev.Digest {
			continue
		}
		revisions = append(revisions, rev)
	}
	return revisions
}

func fileContents(commit *object.Commit, path string) (string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("getting tree: %w", err)
	}

	f, err := tree.File(path)
	if err != nil {
		return "", fmt.Errorf("getting file %s: %w", path, err)
	}

	return f.Contents()
}

func firstLine(message string) string {
	for i := 0; i < len(message); i++ {
		if message[i] == '\n' {
			return message[:i]
		}
	}
	return message
}
