package state

import "time"

// Counters tallies observed events per category for one process run.
// It is not internally synchronized; every access must hold Env.Lock,
// the same lock that serializes store access.
type Counters struct {
	counts    [numCategories]uint64
	decoded   uint64
	encrypted uint64
	epoch     time.Time
}

func NewCounters() *Counters {
	return &Counters{}
}

// MarkEpoch records the ingestion start time. Only the first call has
// an effect; the epoch is never reset during a run.
func (c *Counters) MarkEpoch(now time.Time) {
	if c.epoch.IsZero() {
		c.epoch = now
	}
}

func (c *Counters) Increment(cat Category) {
	if cat >= 0 && cat < numCategories {
		c.counts[cat]++
	}
}

// CountDecode tallies a decode outcome, independent of the per-category
// packet counters.
func (c *Counters) CountDecode(encrypted bool) {
	if encrypted {
		c.encrypted++
	} else {
		c.decoded++
	}
}

// CountersSnapshot is an immutable copy handed to reporting jobs.
type CountersSnapshot struct {
	Counts    map[Category]uint64
	Decoded   uint64
	Encrypted uint64
	Epoch     time.Time
}

func (c *Counters) Snapshot() CountersSnapshot {
	counts := make(map[Category]uint64, numCategories)
	for cat := Category(0); cat < numCategories; cat++ {
		counts[cat] = c.counts[cat]
	}
	return CountersSnapshot{
		Counts:    counts,
		Decoded:   c.decoded,
		Encrypted: c.encrypted,
		Epoch:     c.epoch,
	}
}
