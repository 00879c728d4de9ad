// Package metrics aggregates broadcast throughput and change event tallies.
package metrics

import (
	"sync"
	"time"

	"github.com/herocast/herocast/domain"
)

const (
	// messageRingCapacity bounds the timestamps kept for the per-minute
	// rate.
	messageRingCapacity = 1000
	// eventRingCapacity bounds the records kept for the 24h tally.
	eventRingCapacity = 10000

	rateWindow  = time.Minute
	tallyWindow = 24 * time.Hour
)

type eventRecord struct {
	kind domain.EventKind
	at   time.Time
}

// Aggregator maintains rolling counters for message rate, lifetime change
// event totals and a 24h windowed tally. The rings evict oldest entries
// FIFO when full; the lifetime counters are monotonic and never reset.
type Aggregator struct {
	mu    sync.Mutex
	start time.Time

	totalMessages int64
	lifetime      domain.KindCounts

	msgRing []time.Time
	msgHead int
	msgLen  int

	evtRing []eventRecord
	evtHead int
	evtLen  int
}

// New creates an aggregator whose uptime starts at now.
func New(now time.Time) *Aggregator {
	return &Aggregator{
		start:   now,
		msgRing: make([]time.Time, messageRingCapacity),
		evtRing: make([]eventRecord, eventRingCapacity),
	}
}

// RecordMessage notes one broadcast at now.
func (a *Aggregator) RecordMessage(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalMessages++

	if a.msgLen == len(a.msgRing) {
		a.msgRing[a.msgHead] = now
		a.msgHead = (a.msgHead + 1) % len(a.msgRing)
		return
	}
	a.msgRing[(a.msgHead+a.msgLen)%len(a.msgRing)] = now
	a.msgLen++
}

// RecordEvent notes one change event of the given kind at now.
func (a *Aggregator) RecordEvent(kind domain.EventKind, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lifetime.Add(kind, 1)

	rec := eventRecord{kind: kind, at: now}
	if a.evtLen == len(a.evtRing) {
		a.evtRing[a.evtHead] = rec
		a.evtHead = (a.evtHead + 1) % len(a.evtRing)
		return
	}
	a.evtRing[(a.evtHead+a.evtLen)%len(a.evtRing)] = rec
	a.evtLen++
}

// Snapshot derives the current metrics view at now. Connected count and
// nicknames are filled in by the hub.
func (a *Aggregator) Snapshot(now time.Time) domain.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	rateCutoff := now.Add(-rateWindow)
	perMinute := 0
	for i := 0; i < a.msgLen; i++ {
		if !a.msgRing[(a.msgHead+i)%len(a.msgRing)].Before(rateCutoff) {
			perMinute++
		}
	}

	tallyCutoff := now.Add(-tallyWindow)
	var last24h domain.KindCounts
	for i := 0; i < a.evtLen; i++ {
		rec := a.evtRing[(a.evtHead+i)%len(a.evtRing)]
		if !rec.at.Before(tallyCutoff) {
			last24h.Add(rec.kind, 1)
		}
	}

	return domain.MetricsSnapshot{
		MessagesPerMinute: perMinute,
		TotalMessages:     a.totalMessages,
		CDCEvents:         a.lifetime,
		Events24h:         last24h,
		UptimeSeconds:     now.Sub(a.start).Seconds(),
	}
}
