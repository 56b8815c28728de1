package client

import (
	"testing"
	"time"

	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/stores"
)

func msgAt(sender, content string, at time.Time) stores.ChatMessage {
	return stores.ChatMessage{
		MessageID: content,
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
}

func TestGroupMessages_Empty(t *testing.T) {
	if got := GroupMessages(nil); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestGroupMessages_SameSenderWithinWindow(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "first", base),
		msgAt(models.RoleAssistant, "second", base.Add(30*time.Second)),
		msgAt(models.RoleAssistant, "third", base.Add(60*time.Second)),
	})
	if len(grouped) != 1 {
		t.Fatalf("Expected 1 combined message, got %d", len(grouped))
	}
	if grouped[0].Content != "first\n\nsecond\n\nthird" {
		t.Errorf("Expected blank-line joined content, got %q", grouped[0].Content)
	}
	if !grouped[0].Timestamp.Equal(base.Add(60 * time.Second)) {
		t.Errorf("Expected combined message to carry the latest timestamp")
	}
}

func TestGroupMessages_DifferentSendersNeverMerge(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleUser, "question", base),
		msgAt(models.RoleAssistant, "answer", base.Add(time.Second)),
	})
	if len(grouped) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(grouped))
	}
}

func TestGroupMessages_GapOverTwoMinutesSplits(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "first", base),
		msgAt(models.RoleAssistant, "late", base.Add(3*time.Minute)),
	})
	if len(grouped) != 2 {
		t.Fatalf("Expected split on a 3 minute gap, got %d messages", len(grouped))
	}
}

func TestGroupMessages_UnterminatedFenceOverridesTimeGap(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "here's the code:\n```go\nfunc main() {", base),
		msgAt(models.RoleAssistant, "}\n```", base.Add(10*time.Minute)),
	})
	if len(grouped) != 1 {
		t.Fatalf("Expected unterminated fence to merge across the gap, got %d messages", len(grouped))
	}
}

func TestGroupMessages_FenceOverrideRequiresSameSender(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "```go\nfunc main() {", base),
		msgAt(models.RoleUser, "looks wrong", base.Add(time.Second)),
	})
	if len(grouped) != 2 {
		t.Fatalf("Expected no merge across senders even with an open fence, got %d", len(grouped))
	}
}

func TestGroupMessages_LoneClosingFenceMergesBack(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "fmt.Println(\"hi\")", base),
		msgAt(models.RoleAssistant, "```", base.Add(5*time.Minute)),
	})
	if len(grouped) != 1 {
		t.Fatalf("Expected lone closing fence to merge backwards, got %d messages", len(grouped))
	}
}

func TestGroupMessages_TwoCompleteBlocksStaySeparate(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "```go\na\n```", base),
		msgAt(models.RoleAssistant, "```go\nb\n```", base.Add(time.Second)),
	})
	if len(grouped) != 2 {
		t.Fatalf("Expected two complete code blocks to stay separate, got %d", len(grouped))
	}
}

func TestGroupMessages_CompleteBlockThenProseMerges(t *testing.T) {
	base := time.Now()
	grouped := GroupMessages([]stores.ChatMessage{
		msgAt(models.RoleAssistant, "```go\na\n```", base),
		msgAt(models.RoleAssistant, "that's the whole program", base.Add(time.Second)),
	})
	if len(grouped) != 1 {
		t.Fatalf("Expected prose after a code block to merge, got %d messages", len(grouped))
	}
}

func TestGroupMessages_MergedMessageDropsPartBookkeeping(t *testing.T) {
	base := time.Now()
	idx0, idx1, total := 0, 1, 2
	first := msgAt(models.RoleAssistant, "a", base)
	first.PartIndex, first.TotalParts = &idx0, &total
	second := msgAt(models.RoleAssistant, "b", base.Add(time.Second))
	second.PartIndex, second.TotalParts = &idx1, &total

	grouped := GroupMessages([]stores.ChatMessage{first, second})
	if len(grouped) != 1 {
		t.Fatalf("Expected 1 combined message, got %d", len(grouped))
	}
	if grouped[0].PartIndex != nil || grouped[0].TotalParts != nil {
		t.Errorf("Expected part bookkeeping cleared on merge")
	}
}

func TestGroupMessages_InputNotMutated(t *testing.T) {
	base := time.Now()
	input := []stores.ChatMessage{
		msgAt(models.RoleAssistant, "a", base),
		msgAt(models.RoleAssistant, "b", base.Add(time.Second)),
	}
	GroupMessages(input)
	if input[0].Content != "a" {
		t.Errorf("Expected input untouched, got %q", input[0].Content)
	}
}
