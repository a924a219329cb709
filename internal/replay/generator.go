package replay

import (
	"math/rand/v2"
	"time"

	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/internal/seed"
)

// Generate builds hours of activity for the stock roster ending at now, in
// the wire form senders publish.
func Generate(rng *rand.Rand, now time.Time, hours int) ([]types.EventRequest, error) {
	roster, err := seed.DefaultRoster()
	if err != nil {
		return nil, err
	}
	events := seed.Synthetic(rng, roster, now.UTC().Truncate(time.Second), hours)
	out := make([]types.EventRequest, len(events))
	for i, ev := range events {
		out[i] = types.EventRequestFrom(ev)
	}
	return out, nil
}

func chunk(events []types.EventRequest, size int) [][]types.EventRequest {
	if size < 1 {
		size = len(events)
	}
	var out [][]types.EventRequest
	for len(events) > 0 {
		n := min(size, len(events))
		out = append(out, events[:n])
		events = events[n:]
	}
	return out
}
