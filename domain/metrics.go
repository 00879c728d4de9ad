package domain

// KindCounts holds one counter per change event kind.
type KindCounts struct {
	Create   int64 `json:"create"`
	Update   int64 `json:"update"`
	Delete   int64 `json:"delete"`
	Snapshot int64 `json:"snapshot"`
}

// Add increments the counter for kind by n. Unknown kinds are ignored.
func (k *KindCounts) Add(kind EventKind, n int64) {
	switch kind {
	case EventKindCreate:
		k.Create += n
	case EventKindUpdate:
		k.Update += n
	case EventKindDelete:
		k.Delete += n
	case EventKindSnapshot:
		k.Snapshot += n
	}
}

// Total returns the sum across all kinds.
func (k KindCounts) Total() int64 {
	return k.Create + k.Update + k.Delete + k.Snapshot
}

// MetricsSnapshot is the point-in-time view served by the metrics endpoint.
// It is computed on demand and never persisted.
type MetricsSnapshot struct {
	ConnectedUsers    int        `json:"connected_users"`
	MessagesPerMinute int        `json:"messages_per_minute"`
	TotalMessages     int64      `json:"total_messages"`
	CDCEvents         KindCounts `json:"cdc_events"`
	Events24h         KindCounts `json:"events_24h"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
	ActiveNicknames   []string   `json:"active_nicknames"`
}
