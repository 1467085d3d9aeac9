package grant

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/rs/zerolog/log"
)

// unsupportedLabel replaces unknown grant types in metric labels.
const unsupportedLabel = "unsupported"

// Dispatcher holds the strategies by grant type, in registration order.
type Dispatcher struct {
	strategies map[string][]Strategy
	metrics    *Metrics
	nowTime    func() time.Time
	lock       sync.RWMutex
}

// DispatcherOption defines a function type to modify the Dispatcher instance.
type DispatcherOption func(*Dispatcher)

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		strategies: make(map[string][]Strategy),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Register(strategies ...Strategy) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, s := range strategies {
		d.strategies[s.GrantType()] = append(d.strategies[s.GrantType()], s)
	}
}

// Select returns the first registered strategy supporting the request. Nothing supports
// an unauthenticated request.
func (d *Dispatcher) Select(grantType string, client *clients.Client, domain *domains.Domain) (Strategy, bool) {
	if client == nil {
		return nil, false
	}
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, s := range d.strategies[grantType] {
		if s.Supports(grantType, client, domain) {
			return s, true
		}
	}
	return nil, false
}

// Process validates the request with the selected strategy.
func (d *Dispatcher) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	start := d.nowTime()
	clientID := ""
	if client != nil {
		clientID = client.ID
	}
	logger := log.Ctx(ctx).With().Str("grant_type", req.GrantType).Str("client_id", clientID).Logger()

	strategy, ok := d.Select(req.GrantType, client, domain)
	if !ok {
		logger.Warn().Msg("no strategy supports the grant type")
		d.metrics.observe(unsupportedLabel, oauthmodel.KindInvalidGrant.Code(), d.nowTime().Sub(start))
		return nil, oauthmodel.InvalidGrant("Unsupported grant type: %s", req.GrantType)
	}
	logger.Debug().Msg("strategy selected")

	result, err := strategy.Process(ctx, req, client, domain)
	elapsed := d.nowTime().Sub(start)
	if err != nil {
		if kind := oauthmodel.KindOf(err); kind != 0 {
			logger.Warn().Str("error", kind.Code()).Err(err).Msg("grant rejected")
			d.metrics.observe(req.GrantType, kind.Code(), elapsed)
		} else {
			logger.Error().Err(err).Msg("grant failed")
			d.metrics.observe(req.GrantType, "error", elapsed)
		}
		return nil, err
	}
	d.metrics.observe(req.GrantType, outcomeSuccess, elapsed)
	return result, nil
}
