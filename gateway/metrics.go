package gateway

import (
	"context"

	"github.com/jrsteele09/mento-client/authevents"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	MetricRequests      = "mento.gateway.requests"
	MetricRefreshes     = "mento.gateway.refreshes"
	MetricReplays       = "mento.gateway.replays"
	MetricForcedLogouts = "mento.gateway.forced_logouts"
)

type metrics struct {
	requests      metric.Int64Counter
	refreshes     metric.Int64Counter
	replays       metric.Int64Counter
	forcedLogouts metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	m, err := createMetrics(meter)
	if err != nil {
		log.Err(err).Msg("Failed to create gateway metrics, falling back to no-op")
		m, _ = createMetrics(noop.NewMeterProvider().Meter(""))
	}
	return m
}

func createMetrics(meter metric.Meter) (*metrics, error) {
	requests, err := meter.Int64Counter(MetricRequests, metric.WithDescription("Requests sent through the gateway."))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter(MetricRefreshes, metric.WithDescription("Token refresh calls made to the backend."))
	if err != nil {
		return nil, err
	}
	replays, err := meter.Int64Counter(MetricReplays, metric.WithDescription("Requests replayed after a successful refresh."))
	if err != nil {
		return nil, err
	}
	forcedLogouts, err := meter.Int64Counter(MetricForcedLogouts, metric.WithDescription("Sessions ended by the gateway."))
	if err != nil {
		return nil, err
	}
	return &metrics{
		requests:      requests,
		refreshes:     refreshes,
		replays:       replays,
		forcedLogouts: forcedLogouts,
	}, nil
}

func (m *metrics) request(ctx context.Context) {
	m.requests.Add(ctx, 1)
}

func (m *metrics) replay(ctx context.Context) {
	m.replays.Add(ctx, 1)
}

func (m *metrics) refresh(ctx context.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) forcedLogout(ctx context.Context, reason authevents.Reason) {
	m.forcedLogouts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}
