// internal/summarize/blockers.go
package summarize

import (
	"fmt"
	"strings"

	"gitsync-standup/internal/model"
)

// blockerKeywords flag commit messages that look like unresolved work.
var blockerKeywords = []string{
	"wip",
	"revert",
	"hack",
	"fixme",
	"blocked",
	"broken",
	"do not merge",
	"dont merge",
}

// DetectBlockers runs the local keyword heuristics over commit
// messages. It is independent of the model call; heuristic blockers are
// always merged into the report even when the model omits them.
func DetectBlockers(commits []model.CommitRecord) []string {
	var blockers []string
	seen := make(map[string]bool)

	for _, c := range commits {
		msg := strings.ToLower(c.Message)
		for _, kw := range blockerKeywords {
			if !containsWord(msg, kw) {
				continue
			}
			b := fmt.Sprintf("%s: %q", c.Author, firstLine(c.Message))
			if !seen[b] {
				seen[b] = true
				blockers = append(blockers, b)
			}
			break
		}
	}
	return blockers
}

// containsWord matches kw on rough word boundaries so "wip" does not
// fire on "swipe".
func containsWord(msg, kw string) bool {
	idx := 0
	for {
		i := strings.Index(msg[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(msg[start-1])
		afterOK := end == len(msg) || !isWordChar(msg[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// mergeBlockers unions model-reported and heuristic blockers,
// heuristics first, preserving order and dropping duplicates.
func mergeBlockers(heuristic, fromModel []string) []string {
	var merged []string
	seen := make(map[string]bool)
	for _, lists := range [][]string{heuristic, fromModel} {
		for _, b := range lists {
			b = strings.TrimSpace(b)
			if b == "" || seen[strings.ToLower(b)] {
				continue
			}
			seen[strings.ToLower(b)] = true
			merged = append(merged, b)
		}
	}
	return merged
}
