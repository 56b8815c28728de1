package sessions

import (
	"fmt"
	"strings"
	"time"

	models "github.com/moncdev/personachat/models"
)

// SplitReply segments one full completion reply into ordered display
// parts: split on line breaks, drop blank lines, tag each surviving line
// with its 0-based index and the total count, mark the last complete.
// A reply with zero non-empty lines yields a single part holding the
// trimmed original so the turn always produces at least one bubble.
func SplitReply(reply string) []models.MessagePart {
	var kept []string
	for _, line := range strings.Split(reply, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		kept = []string{strings.TrimSpace(reply)}
	}

	now := time.Now().UnixMilli()
	parts := make([]models.MessagePart, len(kept))
	for i, content := range kept {
		parts[i] = models.MessagePart{
			ID:         fmt.Sprintf("%d_%d", now, i),
			Content:    content,
			IsComplete: i == len(kept)-1,
			PartIndex:  i,
			TotalParts: len(kept),
		}
	}
	return parts
}

// RejoinParts reassembles part content with newlines. Inverse of
// SplitReply on non-empty-line content.
func RejoinParts(parts []models.MessagePart) string {
	contents := make([]string, len(parts))
	for i, p := range parts {
		contents[i] = p.Content
	}
	return strings.Join(contents, "\n")
}
