package idem

import (
	"sync"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	clockport "github.com/Overland-East-Bay/idem-ops-api/internal/ports/out/clock"
)

// DefaultSlotsPerWindow gives 5s slots for the 5m window and 1m slots for the 60m window.
const DefaultSlotsPerWindow = 60

// WindowedCounter keeps decaying present/unique/dupes counts for every tracked window.
// It is safe for concurrent use.
//
// Each window is a fixed ring of equal-width slots. A slot is stamped with the absolute slot
// number it holds, so slots that have aged out are ignored by reads and recycled by writes
// without a background ticker.
type WindowedCounter struct {
	clk    clockport.Clock
	origin time.Time

	mu    sync.RWMutex
	rings []*ring
}

type slot struct {
	idx     int64
	present int64
	unique  int64
	dupes   int64
}

type ring struct {
	window domain.Window
	width  time.Duration
	slots  []slot
}

func NewWindowedCounter(clk clockport.Clock, slotsPerWindow int) *WindowedCounter {
	if slotsPerWindow <= 0 {
		slotsPerWindow = DefaultSlotsPerWindow
	}
	c := &WindowedCounter{clk: clk, origin: clk.Now()}
	for _, w := range domain.TrackedWindows {
		c.rings = append(c.rings, &ring{
			window: w,
			width:  w.Size / time.Duration(slotsPerWindow),
			slots:  make([]slot, slotsPerWindow),
		})
	}
	return c
}

// Record counts one classified request in every window. Absent requests are ignored.
func (c *WindowedCounter) Record(class domain.Classification) {
	if !class.Present() {
		return
	}
	elapsed := c.clk.Now().Sub(c.origin)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rings {
		s := r.slotFor(r.index(elapsed))
		s.present++
		switch class {
		case domain.ClassUnique:
			s.unique++
		case domain.ClassDupe:
			s.dupes++
		}
	}
}

// Snapshot sums the live slots of w. It does not mutate the counter.
// Unknown windows yield an empty snapshot.
func (c *WindowedCounter) Snapshot(w domain.Window) Snapshot {
	elapsed := c.clk.Now().Sub(c.origin)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Snapshot{Window: w}
	for _, r := range c.rings {
		if r.window != w {
			continue
		}
		cur := r.index(elapsed)
		oldest := cur - int64(len(r.slots)) + 1
		for i := range r.slots {
			s := &r.slots[i]
			// Slots stamped after cur only exist if the clock moved backward; skip them.
			if s.idx < oldest || s.idx > cur {
				continue
			}
			out.Present += s.present
			out.Unique += s.unique
			out.Dupes += s.dupes
		}
	}
	out.DupePercentage = dupePercentage(out.Dupes, out.Present)
	return out
}

// Reset zeroes every window.
func (c *WindowedCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rings {
		for i := range r.slots {
			r.slots[i] = slot{}
		}
	}
}

// index is the absolute slot number for an offset from the counter origin (floor division).
func (r *ring) index(elapsed time.Duration) int64 {
	w := int64(r.width)
	n := int64(elapsed)
	q := n / w
	if n%w != 0 && n < 0 {
		q--
	}
	return q
}

// slotFor returns the slot holding idx, recycling it if it held a different slot number.
func (r *ring) slotFor(idx int64) *slot {
	n := int64(len(r.slots))
	pos := idx % n
	if pos < 0 {
		pos += n
	}
	s := &r.slots[pos]
	if s.idx != idx {
		*s = slot{idx: idx}
	}
	return s
}

func dupePercentage(dupes, present int64) float64 {
	if present <= 0 {
		return 0
	}
	p := 100 * float64(dupes) / float64(present)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
