package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/peeredge-io/shadowbridge/internal/adminserver"
	"github.com/peeredge-io/shadowbridge/internal/apperrors"
	"github.com/peeredge-io/shadowbridge/internal/asyncreply"
	"github.com/peeredge-io/shadowbridge/internal/credential"
	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/longpoll"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/internal/orchestrator"
	"github.com/peeredge-io/shadowbridge/internal/processor"
	"github.com/peeredge-io/shadowbridge/internal/processor/generic"
	"github.com/peeredge-io/shadowbridge/internal/processor/google"
	"github.com/peeredge-io/shadowbridge/internal/processor/watson"
	"github.com/peeredge-io/shadowbridge/internal/shadow"
	"github.com/peeredge-io/shadowbridge/internal/subscription"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// peerEntry is one enabled cloud's processor.Base plus the shadow
// worker pool that creates its devices.
type peerEntry struct {
	cloud   string
	base    *processor.Base
	host    string
	creator *shadow.Creator
}

// Bridge is the running application: the shared endpoint/subscription/
// correlator state, every enabled peer cloud's processor, the
// credential-refresh scheduler (Google only), the long-poll reader, and
// the admin/health server.
type Bridge struct {
	registry   *endpoint.Registry
	sessions   *endpoint.Sessions
	subs       *subscription.Manager
	correlator *asyncreply.Correlator

	peers []*peerEntry

	scheduler *credential.Scheduler

	longpoll *longpoll.Reader
	admin    *adminserver.Server

	asyncSweepEvery time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func (b *Bridge) addPeer(cloud string, base *processor.Base, host string, creator *shadow.Creator) {
	b.peers = append(b.peers, &peerEntry{cloud: cloud, base: base, host: host, creator: creator})
}

func shadowConcurrency(cfg *Config) int {
	if cfg.Processor != nil && cfg.Processor.ShadowCreationConcurrency > 0 {
		return cfg.Processor.ShadowCreationConcurrency
	}
	return shadow.DefaultConcurrency
}

// wireGoogle builds the Google Cloud IoT Core peer: its Processor,
// Base, credential-refresh scheduler, and shadow-creation worker pool
// (spec.md §4.2, §4.3).
func (b *Bridge) wireGoogle(
	cfg *Config,
	procCfg processor.Config,
	orch orchestrator.Orchestrator,
	registry *endpoint.Registry,
	subs *subscription.Manager,
	correlator *asyncreply.Correlator,
	sessions *endpoint.Sessions,
) error {
	opts := cfg.Google
	key, err := loadRSAPrivateKey(opts.PrivateKeyPath)
	if err != nil {
		return err
	}

	proc := google.New(google.Config{
		ProjectID:            opts.ProjectID,
		CloudRegion:          opts.CloudRegion,
		RegistryName:         opts.RegistryName,
		MQTTHost:             opts.MQTTHost,
		ConfigTopicTemplate:  opts.ConfigTopicTemplate,
		EventTopicTemplate:   opts.EventTopicTemplate,
		StateTopicTemplate:   opts.StateTopicTemplate,
		JWTExpiration:        opts.JWTExpiration,
		RefreshSlack:         opts.RefreshSlack,
		RefreshWaitMs:        opts.WaitForLockMs,
		MaxRetries:           opts.MaxRetries,
		DeviceManagerRetries: opts.DeviceManagerRetries,
		InsecureSkipVerify:   opts.InsecureSkipVerify,
	}, key, sessions, nil)

	base := processor.NewBase(procCfg, proc, orch, registry, subs, correlator, sessions)
	proc.SetResubscriber(base.Subscribe)

	refreshInterval := opts.JWTExpiration - opts.RefreshSlack
	if refreshInterval <= 0 {
		refreshInterval = time.Hour
	}

	var scheduler *credential.Scheduler
	scheduler = credential.NewScheduler(func(ctx context.Context, ep string) error {
		if err := proc.RefreshCredentials(ctx, ep); err != nil {
			return err
		}
		scheduler.Schedule(ctx, ep, refreshInterval)
		return nil
	})
	b.scheduler = scheduler
	base.SetDeleteHook(scheduler.Stop)

	creator := shadow.NewCreator(shadowConcurrency(cfg), func(ctx context.Context, ep, ept string) error {
		if err := proc.CreateShadow(ctx, ep, ept); err != nil {
			return err
		}
		if err := base.Subscribe(ctx, ep, ept); err != nil {
			return err
		}
		proc.MarkConnected(ep, ept)
		scheduler.Schedule(ctx, ep, refreshInterval)
		return nil
	})

	b.addPeer("google", base, opts.MQTTHost, creator)
	return nil
}

// wireWatson builds the IBM Watson IoT peer: one shared MQTT session,
// no credential-refresh timer (spec.md §4.2: API key/token are
// long-lived).
func (b *Bridge) wireWatson(
	cfg *Config,
	procCfg processor.Config,
	orch orchestrator.Orchestrator,
	registry *endpoint.Registry,
	subs *subscription.Manager,
	correlator *asyncreply.Correlator,
	sessions *endpoint.Sessions,
) {
	opts := cfg.Watson
	proc := watson.New(watson.Config{
		BrokerURL:                opts.BrokerURL,
		ClientID:                 opts.ClientID,
		APIKey:                   opts.APIKey,
		AuthToken:                opts.AuthToken,
		LegacyBridge:             opts.LegacyBridge,
		DeviceDataKey:            opts.DeviceDataKey,
		CmdTopicGet:              opts.CmdTopicGet,
		CmdTopicPut:              opts.CmdTopicPut,
		CmdTopicPost:             opts.CmdTopicPost,
		CmdTopicDelete:           opts.CmdTopicDelete,
		ObserveNotificationTopic: opts.ObserveNotificationTopic,
		CmdResponseTopic:         opts.CmdResponseTopic,
		RequestTopicFilter:       opts.RequestTopicFilter,
		InsecureSkipVerify:       opts.InsecureSkipVerify,
	})

	base := processor.NewBase(procCfg, proc, orch, registry, subs, correlator, sessions)
	creator := shadow.NewCreator(shadowConcurrency(cfg), simpleCreateFunc(proc, base))
	b.addPeer("watson", base, opts.BrokerURL, creator)
}

// wireGeneric builds the bare-broker peer: one shared session, no
// cloud-side shadow or credential refresh.
func (b *Bridge) wireGeneric(
	cfg *Config,
	procCfg processor.Config,
	orch orchestrator.Orchestrator,
	registry *endpoint.Registry,
	subs *subscription.Manager,
	correlator *asyncreply.Correlator,
	sessions *endpoint.Sessions,
) {
	opts := cfg.Generic
	proc := generic.New(generic.Config{
		BrokerURL:          opts.BrokerURL,
		ClientID:           opts.ClientID,
		Username:           opts.Username,
		Password:           opts.Password,
		TopicRoot:          opts.TopicRoot,
		RequestTag:         opts.RequestTag,
		Domain:             opts.Domain,
		DraftUplinkTopic:   opts.DraftUplinkTopic,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	})

	base := processor.NewBase(procCfg, proc, orch, registry, subs, correlator, sessions)
	creator := shadow.NewCreator(shadowConcurrency(cfg), simpleCreateFunc(proc, base))
	b.addPeer("generic", base, opts.BrokerURL, creator)
}

// peerShadowOps is the subset of processor.PeerProcessor a shadow
// creation job needs: a cloud-side CreateShadow call followed by the
// topic subscribe every peer cloud implements.
type peerShadowOps interface {
	CreateShadow(ctx context.Context, ep, ept string) error
}

// simpleCreateFunc builds the shadow.CreateFunc shared by Watson and
// the generic broker: create the cloud shadow (a no-op for both, kept
// for symmetry with Google), then subscribe.
func simpleCreateFunc(peer peerShadowOps, base *processor.Base) shadow.CreateFunc {
	return func(ctx context.Context, ep, ept string) error {
		if err := peer.CreateShadow(ctx, ep, ept); err != nil {
			return err
		}
		return base.Subscribe(ctx, ep, ept)
	}
}

// dispatchBackendEvent is the long-poll reader's Dispatch callback
// (spec.md §4.4): it decodes the envelope once and fans it out to every
// enabled peer cloud's Base, since the backend has no notion of which
// cloud a given endpoint belongs to — each Base's own registry and
// subscription-manager state naturally ignores endpoints it does not
// own.
func (b *Bridge) dispatchBackendEvent(ctx context.Context, body []byte) {
	ev, err := model.ParseBackendEvent(body)
	if err != nil {
		log.Warn(err, "failed to decode backend event")
		return
	}

	for _, peer := range b.peers {
		peer.base.ProcessBackendEvent(ctx, ev, peer.creator.Submit)
	}
}

// readiness reports whether every enabled peer cloud has established
// its default session, used by the admin server's /readyz probe.
func (b *Bridge) readiness() error {
	b.readyMu.RLock()
	defer b.readyMu.RUnlock()
	if !b.ready {
		return fmt.Errorf("bridge: not yet listening")
	}
	return nil
}

// Run starts every peer cloud's listener, the credential scheduler's
// implicit timers, the async-response sweep, the long-poll reader, and
// the admin server, returning when ctx is cancelled or any of them
// fails (spec.md §5 concurrency model).
func (b *Bridge) Run(ctx context.Context) error {
	for _, peer := range b.peers {
		if err := peer.base.InitListener(ctx, peer.host); err != nil {
			return fmt.Errorf("%s: init listener: %w", peer.cloud, err)
		}
		log.Info("peer cloud listener ready", "cloud", peer.cloud)
	}

	b.readyMu.Lock()
	b.ready = true
	b.readyMu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.longpoll.Run(ctx); err != nil && !errors.Is(err, apperrors.ErrCancelled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return b.runAsyncSweep(ctx)
	})

	g.Go(func() error {
		return b.admin.Start(ctx)
	})

	err := g.Wait()

	b.readyMu.Lock()
	b.ready = false
	b.readyMu.Unlock()

	if b.scheduler != nil {
		b.scheduler.StopAll()
	}
	for _, peer := range b.peers {
		peer.base.StopListener(ctx)
	}

	return err
}

// runAsyncSweep periodically drops expired AsyncRecords (spec.md §4.5's
// policy-defined, not correctness-required, timeout sweep).
func (b *Bridge) runAsyncSweep(ctx context.Context) error {
	interval := b.asyncSweepEvery
	if interval <= 0 {
		interval = asyncreply.DefaultTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if dropped := b.correlator.SweepExpired(now); dropped > 0 {
				log.Info("swept expired async records", "count", dropped)
			}
		}
	}
}
