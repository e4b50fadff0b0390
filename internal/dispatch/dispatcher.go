// Package dispatch delivers announcements to the configured webhook
// channels. Channels without an endpoint are silently skipped; per-endpoint
// rate limiting and circuit breaking keep a misbehaving webhook from
// stalling a pass.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gameradar/dealwatch/internal/config"
	"github.com/gameradar/dealwatch/internal/model"
	"github.com/gameradar/dealwatch/internal/resilience"
)

// Channel labels an outgoing webhook destination.
type Channel string

const (
	ChannelPremium     Channel = "premium"
	ChannelLow         Channel = "low"
	ChannelFreeWeekend Channel = "free_weekend"
	ChannelDiscount    Channel = "discount"
	ChannelPlayStation Channel = "playstation"
	ChannelXbox        Channel = "xbox"
	ChannelNintendo    Channel = "nintendo"
	ChannelVR          Channel = "vr"
	ChannelPCDeals     Channel = "pc_deals"
	ChannelAll         Channel = "all"
	ChannelStatus      Channel = "status"
)

// Dispatcher posts deal announcements. One instance per pass.
type Dispatcher struct {
	client    *http.Client
	endpoints map[Channel]string
	roles     map[Channel]string
	limiters  map[Channel]*rate.Limiter
	breakers  map[Channel]*resilience.CircuitBreaker
}

// New builds a Dispatcher from the webhook and role configuration.
func New(cfg *config.Config) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{Timeout: 10 * time.Second},
		endpoints: map[Channel]string{
			ChannelPremium:     cfg.Webhooks.Premium,
			ChannelLow:         cfg.Webhooks.Low,
			ChannelFreeWeekend: cfg.Webhooks.FreeWeekend,
			ChannelDiscount:    cfg.Webhooks.Discount,
			ChannelPlayStation: cfg.Webhooks.PlayStation,
			ChannelXbox:        cfg.Webhooks.Xbox,
			ChannelNintendo:    cfg.Webhooks.Nintendo,
			ChannelVR:          cfg.Webhooks.VR,
			ChannelPCDeals:     cfg.Webhooks.PCDeals,
			ChannelAll:         cfg.Webhooks.All,
			ChannelStatus:      cfg.Webhooks.Status,
		},
		roles: map[Channel]string{
			ChannelPremium:     cfg.Roles.Premium,
			ChannelLow:         cfg.Roles.Low,
			ChannelFreeWeekend: cfg.Roles.FreeWeekend,
			ChannelDiscount:    cfg.Roles.Discount,
			ChannelPlayStation: cfg.Roles.PlayStation,
			ChannelXbox:        cfg.Roles.Xbox,
			ChannelNintendo:    cfg.Roles.Nintendo,
			ChannelVR:          cfg.Roles.VR,
			ChannelPCDeals:     cfg.Roles.PCDeals,
			ChannelAll:         cfg.Roles.All,
		},
		limiters: make(map[Channel]*rate.Limiter),
		breakers: make(map[Channel]*resilience.CircuitBreaker),
	}

	for ch, url := range d.endpoints {
		if url == "" {
			continue
		}
		// Webhook providers throttle around 30 requests/min per endpoint.
		d.limiters[ch] = rate.NewLimiter(rate.Every(2*time.Second), 5)
		d.breakers[ch] = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
		})
	}
	return d
}

// Enabled reports whether a channel has an endpoint configured.
func (d *Dispatcher) Enabled(ch Channel) bool {
	return d.endpoints[ch] != ""
}

// Post formats a deal for one channel and sends it there, nothing else.
func (d *Dispatcher) Post(ctx context.Context, ch Channel, deal *model.Deal) (bool, error) {
	return d.Send(ctx, ch, FormatDeal(deal, d.roles[ch]))
}

// Announce posts a deal to its channel and mirrors it to the all-deals
// channel when one is configured. The mirror is best-effort: its failure is
// logged but does not fail the announcement.
func (d *Dispatcher) Announce(ctx context.Context, ch Channel, deal *model.Deal) (bool, error) {
	sent, err := d.Post(ctx, ch, deal)
	if err != nil || !sent {
		return sent, err
	}

	if ch != ChannelAll && d.Enabled(ChannelAll) {
		if _, err := d.Post(ctx, ChannelAll, deal); err != nil {
			zap.L().Warn("dispatch: mirror to all-deals failed",
				zap.String("deal", deal.ID()), zap.Error(err))
		}
	}
	return true, nil
}

// Send posts one payload to a channel. An unconfigured channel is a silent
// skip: (false, nil).
func (d *Dispatcher) Send(ctx context.Context, ch Channel, payload *Message) (bool, error) {
	endpoint := d.endpoints[ch]
	if endpoint == "" {
		return false, nil
	}

	if err := d.limiters[ch].Wait(ctx); err != nil {
		return false, eris.Wrapf(err, "dispatch: rate wait %s", ch)
	}

	err := d.breakers[ch].Execute(ctx, func(ctx context.Context) error {
		return d.post(ctx, endpoint, payload)
	})
	if err != nil {
		return false, eris.Wrapf(err, "dispatch: send %s", ch)
	}
	return true, nil
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, payload *Message) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "dispatch: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "dispatch: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "dispatch: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("dispatch: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
