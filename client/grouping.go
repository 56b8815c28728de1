package client

import (
	"strings"
	"time"

	"github.com/moncdev/personachat/stores"
)

// combineWindow is the maximum gap between two messages from the same
// sender for them to be rendered as one bubble.
const combineWindow = 2 * time.Minute

const fence = "```"

// GroupMessages merges runs of adjacent messages from the same sender
// into combined messages for display. Merge rules, in order:
//
//   - different senders never merge
//   - a message with an unterminated code fence merges with the next
//     one regardless of the time gap, so split code blocks render whole
//   - a message that is exactly a closing fence merges backwards
//   - otherwise messages merge when they are at most two minutes apart,
//     except two messages that each carry a complete code block, which
//     stay separate
//
// Merged content is joined with a blank line and the combined message
// carries the timestamp of its latest part. The input is not mutated.
func GroupMessages(messages []stores.ChatMessage) []stores.ChatMessage {
	if len(messages) == 0 {
		return nil
	}

	combined := make([]stores.ChatMessage, 0, len(messages))
	current := messages[0]

	for _, next := range messages[1:] {
		if shouldCombine(current, next) {
			current.Content = current.Content + "\n\n" + next.Content
			current.Timestamp = next.Timestamp
			// Part bookkeeping is meaningless on a merged message.
			current.PartIndex = nil
			current.TotalParts = nil
			continue
		}
		combined = append(combined, current)
		current = next
	}

	return append(combined, current)
}

func shouldCombine(current, next stores.ChatMessage) bool {
	if current.Sender != next.Sender {
		return false
	}

	if hasUnterminatedFence(current.Content) {
		return true
	}
	if strings.TrimSpace(next.Content) == fence {
		return true
	}

	gap := next.Timestamp.Sub(current.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	if gap > combineWindow {
		return false
	}

	if hasCompleteFence(current.Content) && hasCompleteFence(next.Content) {
		return false
	}
	return true
}

func hasUnterminatedFence(content string) bool {
	return strings.Count(content, fence)%2 == 1
}

func hasCompleteFence(content string) bool {
	return strings.Count(content, fence) >= 2
}
