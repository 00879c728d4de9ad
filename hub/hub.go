// Package hub coordinates connected sessions, nickname assignment, message
// fan-out and metrics recording. One hub instance is constructed at process
// start and handed to every session handler and the feed adapter.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/internal/eventbus"
	"github.com/herocast/herocast/internal/metrics"
	"github.com/herocast/herocast/internal/nickname"
	"github.com/herocast/herocast/internal/registry"
	"github.com/herocast/herocast/logging"
	"github.com/herocast/herocast/pkg/errors"
)

const defaultSendTimeout = 5 * time.Second

type Options struct {
	Logger      *logging.Logger
	Bus         eventbus.Bus
	Errors      errors.Handler
	SendTimeout time.Duration
}

// Hub implements domain.Hub. Each owned structure serializes its own
// mutations; nickname reservation is atomic inside the nickname registry,
// so two sessions racing for the same case-folded name cannot both win.
type Hub struct {
	names *nickname.Registry
	conns *registry.Registry
	stats *metrics.Aggregator

	logger      *logging.Logger
	bus         eventbus.Bus
	errs        errors.Handler
	sendTimeout time.Duration

	// mu serializes the stopped flag against registry inserts so a
	// connect racing Stop cannot slip in after Stop's client snapshot.
	mu      sync.Mutex
	stopped bool
}

func New(opts Options) *Hub {
	sendTimeout := opts.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	errs := opts.Errors
	if errs == nil {
		errs = errors.NewDefaultHandler(opts.Logger.Logger)
	}

	return &Hub{
		names:       nickname.NewRegistry(),
		conns:       registry.New(),
		stats:       metrics.New(time.Now()),
		logger:      opts.Logger,
		bus:         opts.Bus,
		errs:        errs,
		sendTimeout: sendTimeout,
	}
}

// Connect adds the client in the unnamed state. No announcement goes out
// until a nickname is accepted.
func (h *Hub) Connect(client domain.Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return errors.New(errors.ErrorTypeInternal, "HUB_STOPPED", "hub is stopped")
	}
	added := h.conns.Add(client)
	h.mu.Unlock()

	if !added {
		return errors.New(errors.ErrorTypeConflict, "CLIENT_EXISTS", "client already connected").
			WithDetails(client.ID())
	}

	h.logger.Info("client connected",
		"client_id", client.ID(),
		"total_clients", h.conns.Len(),
	)
	h.publish(eventbus.EventClientConnected, client.ID())

	return nil
}

// SetNickname reserves the candidate and binds it to the client. The
// acknowledgment (accepted or error) goes to the requesting client only; a
// join announcement is broadcast on success.
func (h *Hub) SetNickname(client domain.Client, candidate string) error {
	if err := h.names.Reserve(candidate); err != nil {
		h.logger.Info("nickname rejected",
			"client_id", client.ID(),
			"candidate", candidate,
			"reason", errors.Reason(err),
		)
		h.sendTo(client, "NICKNAME_ERROR:"+errors.Reason(err))
		return err
	}

	if !h.conns.Bind(client.ID(), candidate) {
		// The session vanished or was already named; give the
		// reservation back.
		h.names.Release(candidate)
		err := errors.New(errors.ErrorTypeValidation, "NICKNAME_REBIND", "Nickname already set")
		h.sendTo(client, "NICKNAME_ERROR:"+errors.Reason(err))
		return err
	}

	h.logger.Info("nickname accepted",
		"client_id", client.ID(),
		"nickname", candidate,
	)
	h.publish(eventbus.EventClientNamed, candidate)

	h.sendTo(client, "NICKNAME_ACCEPTED:"+candidate)
	h.Broadcast(fmt.Sprintf("🎉 %s joined the chat", candidate))

	return nil
}

// Broadcast records metrics for text and delivers it to every connected
// client in registration order. A failed delivery is logged and skipped,
// never fatal to the rest of the fan-out.
func (h *Hub) Broadcast(text string) {
	now := time.Now()
	h.stats.RecordMessage(now)
	if kind, ok := domain.ClassifyMessage(text); ok {
		h.stats.RecordEvent(kind, now)
	}

	message := []byte(text)
	var successCount, errorCount int

	for _, client := range h.conns.Clients() {
		ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
		err := client.Send(ctx, message)
		cancel()

		if err != nil {
			errorCount++
			h.errs.Handle(context.Background(),
				errors.Wrap(err, errors.ErrorTypeTransport, "SEND_FAILED", "failed to send to client").
					WithDetails(client.ID()))
			continue
		}
		successCount++
	}

	h.logger.Debug("broadcast complete",
		"success_count", successCount,
		"error_count", errorCount,
	)
	h.publish(eventbus.EventMessageBroadcast, text)
}

// Disconnect removes the client, releases its nickname and announces the
// departure. Both the read-error path and an explicit close may call it;
// only the first call finds the session.
func (h *Hub) Disconnect(clientID string) {
	removed, ok := h.conns.Remove(clientID)
	if !ok {
		return
	}

	if removed.Nickname != "" {
		h.names.Release(removed.Nickname)
	}
	removed.Client.Close()

	name := removed.DisplayName()
	h.logger.Info("client disconnected",
		"client_id", clientID,
		"nickname", name,
		"total_clients", h.conns.Len(),
	)
	h.publish(eventbus.EventClientDisconnected, name)

	h.Broadcast(fmt.Sprintf("👋 %s left the chat", name))
}

// Metrics merges the aggregator snapshot with the live connection state.
func (h *Hub) Metrics() domain.MetricsSnapshot {
	snapshot := h.stats.Snapshot(time.Now())
	snapshot.ConnectedUsers = h.conns.Len()
	snapshot.ActiveNicknames = h.conns.Nicknames()
	return snapshot
}

// Stop closes every connected client and rejects further connects.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.mu.Unlock()

	h.logger.Info("stopping hub")

	for _, client := range h.conns.Clients() {
		h.Disconnect(client.ID())
	}

	h.logger.Info("hub stopped")
	return nil
}

func (h *Hub) sendTo(client domain.Client, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()

	if err := client.Send(ctx, []byte(text)); err != nil {
		h.errs.Handle(ctx,
			errors.Wrap(err, errors.ErrorTypeTransport, "SEND_FAILED", "failed to send to client").
				WithDetails(client.ID()))
	}
}

func (h *Hub) publish(eventType eventbus.EventType, data any) {
	if h.bus == nil {
		return
	}
	h.bus.PublishAsync(eventbus.NewEvent(eventType, "hub", data))
}
