package domain

type Hub interface {
	// Connect registers a new client in the unnamed state. No broadcast.
	Connect(client Client) error

	// SetNickname reserves the candidate for the client. On success the
	// acceptance acknowledgment goes to the client and a join announcement
	// is broadcast; on failure only the client is told and it may retry.
	SetNickname(client Client, candidate string) error

	// Broadcast records metrics for text and delivers it to every
	// connected client in registration order, best effort.
	Broadcast(text string)

	// Disconnect removes the client, releases its nickname and broadcasts
	// a departure announcement. Idempotent.
	Disconnect(clientID string)

	// Metrics returns the current snapshot.
	Metrics() MetricsSnapshot

	// Stop closes every connected client.
	Stop() error
}
