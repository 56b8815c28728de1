package sessions

import (
	"context"
	"encoding/json"
	"time"

	models "github.com/moncdev/personachat/models"
)

// StreamTurn runs one chat turn: assemble the prompt, call the
// completion service once, segment the reply, and emit the parts in
// order with pacing delays, followed by the explicit completion signal.
// Events arrive on the first channel; a failure before or during
// emission arrives on the second. Parts already emitted are never
// retracted.
func (s *ChatSession) StreamTurn(ctx context.Context, req models.ChatTurnRequest) (<-chan models.StreamEvent, <-chan error) {
	eventChan := make(chan models.StreamEvent)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		prompt, err := BuildPrompt(s.Persona.Prompt, req.History, req.Message, s.HistoryLimit)
		if err != nil {
			errChan <- err
			return
		}

		// The completion call gets its own bound, distinct from pacing.
		callCtx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}

		reply, err := s.Completer.Complete(callCtx, prompt)
		if err != nil {
			s.Logger.Printf("Completion call failed: %v", err)
			errChan <- err
			return
		}

		parts := SplitReply(reply)
		s.Logger.Printf("Reply segmented into %d parts", len(parts))

		for i, part := range parts {
			if i > 0 {
				select {
				case <-time.After(s.Delay.Next(s.rng)):
				case <-ctx.Done():
					s.Logger.Printf("Turn abandoned after %d parts: %v", i, ctx.Err())
					errChan <- ctx.Err()
					return
				}
			}

			select {
			case eventChan <- models.PartEvent(part):
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}

		select {
		case eventChan <- models.CompleteEvent():
		case <-ctx.Done():
			errChan <- ctx.Err()
		}
	}()

	return eventChan, errChan
}

// RunSSEInteraction runs a full turn and forwards every event to the SSE
// writer. A mid-stream failure terminates the stream with a terminal
// error event instead of the completion signal.
func (s *ChatSession) RunSSEInteraction(ctx context.Context, req models.ChatTurnRequest, writer SSEWriter) error {
	eventChan, errChan := s.StreamTurn(ctx, req)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				s.Logger.Printf("SSE stream finished.")
				return nil
			}

			if err := s.writeEvent(writer, event); err != nil {
				// Client stopped reading; the emission loop ends with us.
				s.Logger.Printf("Error writing to SSE stream: %v", err)
				return err
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				s.Logger.Printf("SSE stream error: %v", err)
				if writeErr := s.writeEvent(writer, models.ErrorEvent(models.AsChatError(err))); writeErr != nil {
					s.Logger.Printf("Error writing SSE error event: %v", writeErr)
				}
				return err
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			s.Logger.Printf("SSE client disconnected")
			return ctx.Err()
		}
	}
}

func (s *ChatSession) writeEvent(writer SSEWriter, event models.StreamEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := writer.WriteSSE(string(jsonData)); err != nil {
		return err
	}
	writer.Flush()
	return nil
}
