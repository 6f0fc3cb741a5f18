package processor

import (
	"context"
	"encoding/base64"

	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// ProcessBackendEvent implements processDeviceServerMessage (spec.md
// §2, §4.1): routes one decoded backend event by top-level key to
// registration, re-registration, deregistration, expiry-as-deletion,
// and notification handling. This is the entry point the long-poll
// reader's Dispatch callback and any webhook handler both call into.
func (b *Base) ProcessBackendEvent(ctx context.Context, ev *model.BackendEvent, creator func(ctx context.Context, ep, ept string) error) {
	if len(ev.Registrations) > 0 {
		b.ProcessRegistration(ctx, ev.Registrations, creator)
	}
	if len(ev.RegUpdates) > 0 {
		b.ProcessReRegistration(ctx, ev.RegUpdates, creator)
	}
	if len(ev.DeRegistrations) > 0 {
		b.ProcessDeregistrations(ctx, ev.DeRegistrations)
	}
	if len(ev.RegistrationsExpired) > 0 {
		// An expired registration is gone the same way an explicit
		// deletion is: unsubscribe, tear down the session, remove the
		// cloud-side shadow.
		b.ProcessDeviceDeletions(ctx, ev.RegistrationsExpired)
	}
	for _, n := range ev.Notifications {
		b.processNotification(ctx, n)
	}
}

func (b *Base) processNotification(ctx context.Context, n model.Notification) {
	if n.IsCompletion() {
		b.ResolveAsyncCompletion(ctx, n.ID, n.Payload)
		return
	}

	ep, ok := b.registry.Get(n.Ep)
	if !ok {
		log.Warn(errUnknownEndpoint, "notification for unregistered endpoint", "ep", n.Ep)
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(n.Payload)
	if err != nil {
		log.Warn(err, "failed to decode notification payload", "ep", n.Ep, "path", n.Path)
		return
	}

	obs := b.peer.CreateObservation("GET", n.Ep, n.Path, FundamentalValue(jsonDecodeAny(decoded)))
	notifyTopic := b.peer.NotificationTopicFor(ep.TopicSet)
	b.publishObservation(ctx, n.Ep, notifyTopic, obs)
}

var errUnknownEndpoint = unknownEndpointError{}

type unknownEndpointError struct{}

func (unknownEndpointError) Error() string { return "unknown endpoint" }
