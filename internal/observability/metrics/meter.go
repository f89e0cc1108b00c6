// Copyright 2026 The Elev8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/elev8/access/internal/guard"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a meter from the global provider, or a no-op meter when
// disabled.
func New(cfg Config, serviceName string) *Meter {
	if !cfg.Enabled {
		return &Meter{meter: noop.NewMeterProvider().Meter(serviceName)}
	}
	return &Meter{meter: otel.Meter(serviceName)}
}

// NewWithProvider creates a meter from an explicit provider.
func NewWithProvider(mp metric.MeterProvider, serviceName string) *Meter {
	return &Meter{meter: mp.Meter(serviceName)}
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// CreateUpDownCounter creates a new up/down counter metric
func (m *Meter) CreateUpDownCounter(name, description string) (metric.Int64UpDownCounter, error) {
	counter, err := m.meter.Int64UpDownCounter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create up/down counter %s: %w", name, err)
	}
	return counter, nil
}

// AccessMetrics records guard outcomes. It implements guard.Recorder.
type AccessMetrics struct {
	decisions      metric.Int64Counter
	profileLookups metric.Float64Histogram
	watchers       metric.Int64UpDownCounter
}

// NewAccessMetrics registers the access instruments on m.
func NewAccessMetrics(m *Meter) (*AccessMetrics, error) {
	decisions, err := m.CreateCounter("access_decisions_total", "Route guard verdicts by state and role")
	if err != nil {
		return nil, err
	}
	lookups, err := m.CreateHistogram("profile_lookup_duration", "Profile lookup latency seen by the route guard", "s")
	if err != nil {
		return nil, err
	}
	watchers, err := m.CreateUpDownCounter("access_watchers_active", "Open access watch streams")
	if err != nil {
		return nil, err
	}
	return &AccessMetrics{decisions: decisions, profileLookups: lookups, watchers: watchers}, nil
}

// RecordDecision implements guard.Recorder
func (a *AccessMetrics) RecordDecision(ctx context.Context, d guard.Decision) {
	role := d.Role.String()
	if role == "" {
		role = "anonymous"
	}
	a.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", d.State.String()),
		attribute.String("role", role),
	))
}

// RecordProfileLookup implements guard.Recorder
func (a *AccessMetrics) RecordProfileLookup(ctx context.Context, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	a.profileLookups.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("result", result)))
}

// WatcherOpened tracks a new watch stream.
func (a *AccessMetrics) WatcherOpened(ctx context.Context) {
	a.watchers.Add(ctx, 1)
}

// WatcherClosed tracks a closed watch stream.
func (a *AccessMetrics) WatcherClosed(ctx context.Context) {
	a.watchers.Add(ctx, -1)
}
