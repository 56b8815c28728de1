package sessions

import (
	"context"
	"log"
	"math/rand"
	"time"

	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/personas"
)

// Completer is the outbound interface to the completion service. One
// call per chat turn; the reply is consumed synchronously and paced for
// display by the session, not by the model.
type Completer interface {
	Complete(ctx context.Context, prompt []models.Message) (string, error)
}

// DelayRange is the inter-part pacing window. Delays are drawn uniformly
// from [Min, Max). A zero range disables pacing, which is what tests
// inject.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelayRange emulates human multi-message typing.
var DefaultDelayRange = DelayRange{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}

// Next draws one delay from the range.
func (d DelayRange) Next(rng *rand.Rand) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rng.Int63n(int64(d.Max-d.Min)))
}

// SSEWriter handles Server-Sent Events writing.
type SSEWriter interface {
	WriteSSE(data string) error
	Flush()
}

// ChatSession turns one completion result into a timed sequence of
// display-ready parts for a single persona conversation.
type ChatSession struct {
	Persona      personas.Persona
	Completer    Completer
	Delay        DelayRange
	HistoryLimit int           // prior turns forwarded upstream, oldest dropped
	Timeout      time.Duration // bound on the completion call, separate from pacing
	Logger       *log.Logger

	rng *rand.Rand
}
