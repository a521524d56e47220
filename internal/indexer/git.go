package indexer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitInfo describes whether the indexed root sits inside a git repository.
type GitInfo struct {
	IsGit   bool
	GitRoot string
}

// DetectGit probes for a surrounding git repository.
func DetectGit(ctx context.Context, root string) GitInfo {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = root

	output, err := cmd.Output()
	if err != nil {
		return GitInfo{IsGit: false}
	}
	return GitInfo{IsGit: true, GitRoot: strings.TrimSpace(string(output))}
}

// GitChange is one entry of `git status --porcelain`.
type GitChange struct {
	Path   string
	Status string // "A", "M", "D", "R", "??"
}

// GitChanges lists files git considers changed. Much cheaper than a full
// walk when only a handful of files moved.
func GitChanges(ctx context.Context, gitRoot string) ([]GitChange, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = gitRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	var changes []GitChange
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		status := strings.TrimSpace(line[:2])
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; the new path is the one
		// that needs indexing.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		changes = append(changes, GitChange{Path: path, Status: status})
	}
	return changes, scanner.Err()
}
