package coordination

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// contribution is what a single rank brings to a rendezvous.
type contribution struct {
	Rank    int     `json:"rank"`
	Root    int     `json:"root"`
	Value   float64 `json:"value"`
	Payload []byte  `json:"payload,omitempty"`
}

// outcome is handed to every rank once all ranks arrived.
type outcome struct {
	// Values holds the contributed value of every rank, indexed by rank
	Values []float64 `json:"values"`
	// Payload is the payload of the root rank
	Payload []byte `json:"payload,omitempty"`
}

type round struct {
	root     int
	arrived  []bool
	count    int
	released int
	values   []float64
	payload  []byte
	done     chan struct{}
}

// hub matches the arrivals of all ranks for numbered rendezvous. It runs on
// the leader and backs every collective operation of the HTTP provider.
type hub struct {
	size int

	mu     sync.Mutex
	rounds map[uint64]*round
}

func newHub(size int) *hub {
	return &hub{
		size:   size,
		rounds: make(map[uint64]*round),
	}
}

// arrive registers the contribution of a rank for the rendezvous seq and
// blocks until every rank arrived or ctx is done.
func (h *hub) arrive(ctx context.Context, seq uint64, c contribution) (*outcome, error) {
	if c.Rank < 0 || c.Rank >= h.size {
		return nil, errors.Errorf("rank %d is out of range [0, %d)", c.Rank, h.size)
	}

	h.mu.Lock()
	r, ok := h.rounds[seq]
	if !ok {
		r = &round{
			root:    c.Root,
			arrived: make([]bool, h.size),
			values:  make([]float64, h.size),
			done:    make(chan struct{}),
		}
		h.rounds[seq] = r
	}
	if r.arrived[c.Rank] {
		h.mu.Unlock()
		return nil, errors.Errorf("rank %d already arrived at rendezvous %d", c.Rank, seq)
	}
	if r.root != c.Root {
		h.mu.Unlock()
		return nil, errors.Errorf("rank %d uses root %d at rendezvous %d, other ranks use %d", c.Rank, c.Root, seq, r.root)
	}
	r.arrived[c.Rank] = true
	r.values[c.Rank] = c.Value
	if c.Rank == r.root {
		r.payload = c.Payload
	}
	r.count++
	if r.count == h.size {
		close(r.done)
	}
	h.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		h.mu.Lock()
		defer h.mu.Unlock()
		select {
		case <-r.done:
			// completed while giving up, the outcome is still delivered
			return h.release(seq, r), nil
		default:
		}
		// withdraw so the rank can arrive again
		r.arrived[c.Rank] = false
		r.values[c.Rank] = 0
		if c.Rank == r.root {
			r.payload = nil
		}
		r.count--
		if r.count == 0 {
			delete(h.rounds, seq)
		}
		return nil, errors.Wrapf(ctx.Err(), "rank %d gave up waiting at rendezvous %d", c.Rank, seq)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.release(seq, r), nil
}

// release hands the outcome of a completed round to one rank. h.mu must be held.
func (h *hub) release(seq uint64, r *round) *outcome {
	r.released++
	if r.released == h.size {
		delete(h.rounds, seq)
	}
	return &outcome{Values: r.values, Payload: r.payload}
}

// pending returns the number of rendezvous not yet released by every rank.
func (h *hub) pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rounds)
}
