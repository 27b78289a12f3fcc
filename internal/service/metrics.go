package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics counts account and session outcomes. A nil *Metrics records nothing.
type Metrics struct {
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	refreshes     metric.Int64Counter
}

// NewMetrics registers the counters on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	registrations, err := meter.Int64Counter("users_registrations_total",
		metric.WithDescription("User registrations by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registrations counter: %w", err)
	}

	logins, err := meter.Int64Counter("users_logins_total",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("users_token_refreshes_total",
		metric.WithDescription("Refresh token rotations by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refreshes counter: %w", err)
	}

	return &Metrics{
		registrations: registrations,
		logins:        logins,
		refreshes:     refreshes,
	}, nil
}

func (m *Metrics) recordRegistration(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, withResult(err))
}

func (m *Metrics) recordLogin(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, withResult(err))
}

func (m *Metrics) recordRefresh(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, withResult(err))
}

func withResult(err error) metric.AddOption {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	return metric.WithAttributes(attribute.String("result", result))
}
