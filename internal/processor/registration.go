package processor

import (
	"context"

	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// ProcessRegistration implements spec.md §4.1 processRegistration: for
// each endpoint and each of its resources, re-subscribes if already
// tracked, else subscribes when observable and auto-subscribe is
// enabled; refreshes the subscription-manager entry either way; then
// asynchronously pulls endpoint metadata.
func (b *Base) ProcessRegistration(ctx context.Context, regs []model.Registration, creator func(ctx context.Context, ep, ept string) error) {
	for _, reg := range regs {
		for _, res := range reg.Resources {
			key := model.SubscriptionKey{Domain: b.cfg.Domain, EpName: reg.Ep, EpType: reg.Ept, Resource: res.Path}

			switch {
			case b.subs.Contains(key):
				if err := b.orch.SubscribeToEndpointResource(ctx, reg.Ep, res.Path); err != nil {
					log.Warn(err, "failed to re-subscribe to resource", "ep", reg.Ep, "path", res.Path)
				}
			case res.Observable && b.cfg.AutoSubscribe:
				if err := b.orch.SubscribeToEndpointResource(ctx, reg.Ep, res.Path); err != nil {
					log.Warn(err, "failed to subscribe to resource", "ep", reg.Ep, "path", res.Path)
				}
			}

			b.subs.Put(key, res.Observable)
		}

		if creator != nil {
			if err := creator(ctx, reg.Ep, reg.Ept); err != nil {
				log.Warn(err, "failed to create shadow during registration", "ep", reg.Ep)
			}
		}

		go b.retrieveEndpointAttributes(ctx, reg.Ep)
	}
}

func (b *Base) retrieveEndpointAttributes(ctx context.Context, ep string) {
	meta, err := b.orch.PullDeviceMetadata(ctx, ep)
	if err != nil {
		log.Warn(err, "failed to pull device metadata", "ep", ep)
		return
	}
	if endpointRec, ok := b.registry.Get(ep); ok {
		for k, v := range meta {
			endpointRec.Metadata[k] = v
		}
	}
}

// ProcessReRegistration implements spec.md §4.1 processReRegistration:
// each reg-updates entry with no recorded topic subscriptions is
// treated as a new registration; otherwise it is a no-op.
func (b *Base) ProcessReRegistration(ctx context.Context, updates []model.Registration, creator func(ctx context.Context, ep, ept string) error) {
	var asNew []model.Registration
	for _, upd := range updates {
		ep, ok := b.registry.Get(upd.Ep)
		if !ok || len(ep.TopicSet) == 0 {
			asNew = append(asNew, upd)
		}
	}
	if len(asNew) > 0 {
		b.ProcessRegistration(ctx, asNew, creator)
	}
}

// ProcessDeregistrations implements spec.md §4.1
// processDeregistrations: returns the affected endpoint names; if the
// delete-on-deregistration policy is set, also triggers deletion.
func (b *Base) ProcessDeregistrations(ctx context.Context, eps []string) []string {
	if b.cfg.DeleteOnDeregistration {
		b.ProcessDeviceDeletions(ctx, eps)
	}
	return eps
}

// ProcessDeviceDeletions implements spec.md §4.1 processDeviceDeletions:
// unsubscribes, tears down per-device MQTT sessions, then removes the
// backend shadow through the per-cloud SDK.
func (b *Base) ProcessDeviceDeletions(ctx context.Context, eps []string) []string {
	for _, ep := range eps {
		b.Unsubscribe(ctx, ep)
		b.sessions.Remove(ctx, ep)
		if err := b.peer.DeleteShadow(ctx, ep); err != nil {
			log.Warn(err, "failed to delete shadow", "ep", ep)
		}
		if b.deleteHook != nil {
			b.deleteHook(ep)
		}
	}
	return eps
}

// Subscribe implements spec.md §4.1 subscribe: validates or creates the
// MQTT session for ep via the registered SessionCreator, stores the
// topic data in the endpoint map, and subscribes to the command topics.
func (b *Base) Subscribe(ctx context.Context, ep, ept string) error {
	topicData, err := b.peer.CreateEndpointTopicData(ep, ept)
	if err != nil {
		return err
	}

	client := b.client
	if creator := b.peer.SessionCreator(); creator != nil {
		client, err = b.sessions.GetOrCreate(ctx, ep, ept, creator)
		if err != nil {
			return err
		}
	}

	endpointRec, _ := b.registry.GetOrCreate(ep, ept)
	endpointRec.TopicSet = topicData

	return b.peer.SubscribeCommandTopics(ctx, client, topicData, b.OnMessageReceive)
}

// Unsubscribe implements spec.md §4.1 unsubscribe: unsubscribes by
// topic-string list, removes the endpoint-map entry, clears the ep→ept
// mapping. Idempotent.
func (b *Base) Unsubscribe(ctx context.Context, ep string) {
	endpointRec, ok := b.registry.Get(ep)
	if !ok {
		return
	}

	client, hasSession := b.sessions.Get(ep)
	if !hasSession {
		client = b.client
	}
	if client != nil {
		for _, topic := range endpointRec.TopicSet.TopicStrings() {
			_ = client.Unsubscribe(ctx, topic)
		}
	}

	b.subs.RemoveEndpoint(ep)
	b.registry.Remove(ep)
}
