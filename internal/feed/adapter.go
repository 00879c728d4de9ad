// Package feed consumes a change-data-capture stream and relays each record
// to the hub as a chat-style notification.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/herocast/herocast/domain"
	"github.com/herocast/herocast/internal/eventbus"
	"github.com/herocast/herocast/logging"
	apperrors "github.com/herocast/herocast/pkg/errors"
)

// envelope is the Debezium record shape: the operation tag and row images
// live under payload.
type envelope struct {
	Payload struct {
		Op     string          `json:"op"`
		Before json.RawMessage `json:"before"`
		After  json.RawMessage `json:"after"`
	} `json:"payload"`
}

// Adapter translates change records into broadcast messages. Decode
// failures are logged and skipped; transient read failures retry with
// backoff; a cancelled context or exhausted source ends the loop cleanly
// without touching the hub.
type Adapter struct {
	source  Source
	hub     domain.Hub
	bus     eventbus.Bus
	logger  *logging.Logger
	errs    apperrors.Handler
	entity  string
	backoff backoff
}

func NewAdapter(source Source, hub domain.Hub, bus eventbus.Bus, logger *logging.Logger, entityLabel string) *Adapter {
	return &Adapter{
		source:  source,
		hub:     hub,
		bus:     bus,
		logger:  logger,
		errs:    apperrors.NewDefaultHandler(logger.Logger),
		entity:  entityLabel,
		backoff: defaultBackoff(),
	}
}

// Run consumes the feed until ctx is cancelled or the source terminates.
func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info("feed adapter started", "entity", a.entity)
	defer a.logger.Info("feed adapter stopped")

	attempt := 0
	for {
		data, err := a.source.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}

			a.errs.Handle(ctx,
				apperrors.Wrap(err, apperrors.ErrorTypeFeed, "FEED_READ", "failed to read change record"))
			a.logger.Debug("retrying feed read", "attempt", attempt)

			if !a.sleep(ctx, a.backoff.nextDelay(attempt)) {
				return ctx.Err()
			}
			attempt++
			continue
		}

		attempt = 0
		a.handleRecord(data)
	}
}

func (a *Adapter) handleRecord(data []byte) {
	event, ok := a.decode(data)
	if !ok {
		return
	}

	a.hub.Broadcast(fmt.Sprintf("%s %s: %s", a.entity, event.Kind.Tag(), event.Payload))

	if a.bus != nil {
		a.bus.PublishAsync(eventbus.NewEvent(eventbus.EventFeedRecord, "feed", string(event.Payload)).
			WithMetadata("kind", string(event.Kind)))
	}
}

// decode maps the Debezium op tag to an event kind: c=create, u=update,
// d=delete, r=snapshot read. Records with an unrecognized or missing tag
// are skipped.
func (a *Adapter) decode(data []byte) (domain.ChangeEvent, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.logger.Error("failed to decode change record", "error", err)
		return domain.ChangeEvent{}, false
	}

	var kind domain.EventKind
	var payload json.RawMessage

	switch env.Payload.Op {
	case "c":
		kind, payload = domain.EventKindCreate, env.Payload.After
	case "u":
		kind, payload = domain.EventKindUpdate, env.Payload.After
	case "d":
		kind, payload = domain.EventKindDelete, env.Payload.Before
	case "r":
		kind, payload = domain.EventKindSnapshot, env.Payload.After
	default:
		a.logger.Debug("skipping record with unrecognized op", "op", env.Payload.Op)
		return domain.ChangeEvent{}, false
	}

	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return domain.ChangeEvent{
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
	}, true
}

// sleep waits for d or until ctx is cancelled; it reports whether the full
// delay elapsed.
func (a *Adapter) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
