// Copyright 2025 Flow State Labs
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

// Package notify delivers operator alerts through a buffered queue with
// retried delivery. Alerts are operational signals (missed reveals,
// invariant violations, drift recommendations); they are never surfaced to
// end users.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Severity classifies an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one operator notification
type Alert struct {
	Severity Severity
	Source   string
	Message  string
	Fields   map[string]any
	Time     time.Time
}

// Sink receives alerts. Implementations may forward to paging or chat
// systems; delivery errors are retried by the notifier.
type Sink interface {
	Deliver(ctx context.Context, alert Alert) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, alert Alert) error

func (f SinkFunc) Deliver(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// LogSink writes alerts to the logger, the default delivery target
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(_ context.Context, alert Alert) error {
		attrs := []any{
			"component", "notify",
			"source", alert.Source,
			"severity", string(alert.Severity),
		}
		for k, v := range alert.Fields {
			attrs = append(attrs, k, v)
		}
		switch alert.Severity {
		case SeverityCritical:
			logger.Error(alert.Message, attrs...)
		case SeverityWarning:
			logger.Warn(alert.Message, attrs...)
		default:
			logger.Info(alert.Message, attrs...)
		}
		return nil
	})
}

// Config describes a notifier
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Sink         Sink
	QueueSize    int
	// MaxDeliveryTime bounds retried delivery of a single alert
	MaxDeliveryTime time.Duration
}

// Notifier drains an alert queue into a sink with retried delivery
type Notifier struct {
	logger          *slog.Logger
	sink            Sink
	queue           chan Alert
	quit            chan struct{}
	wg              sync.WaitGroup
	maxDeliveryTime time.Duration
	metrics         *notifyMetrics
	stopOnce        sync.Once
}

type notifyMetrics struct {
	alertsTotal *prometheus.CounterVec
	dropped     prometheus.Counter
}

// New creates and starts a notifier
func New(cfg *Config) *Notifier {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	sink := cfg.Sink
	if sink == nil {
		sink = LogSink(logger)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	maxDeliveryTime := cfg.MaxDeliveryTime
	if maxDeliveryTime <= 0 {
		maxDeliveryTime = 30 * time.Second
	}
	n := &Notifier{
		logger:          logger,
		sink:            sink,
		queue:           make(chan Alert, queueSize),
		quit:            make(chan struct{}),
		maxDeliveryTime: maxDeliveryTime,
	}
	if cfg.PromRegistry != nil {
		n.metrics = &notifyMetrics{
			alertsTotal: promauto.With(cfg.PromRegistry).NewCounterVec(
				prometheus.CounterOpts{
					Name: "flowd_notify_alerts_total",
					Help: "alerts enqueued per severity",
				},
				[]string{"severity"},
			),
			dropped: promauto.With(cfg.PromRegistry).NewCounter(
				prometheus.CounterOpts{
					Name: "flowd_notify_alerts_dropped_total",
					Help: "alerts dropped due to a full queue",
				},
			),
		}
	}
	n.wg.Add(1)
	go n.worker()
	return n
}

// Notify enqueues an alert; a full queue drops the alert rather than
// blocking the caller
func (n *Notifier) Notify(alert Alert) {
	if alert.Time.IsZero() {
		alert.Time = time.Now()
	}
	if n.metrics != nil {
		n.metrics.alertsTotal.WithLabelValues(string(alert.Severity)).Inc()
	}
	select {
	case n.queue <- alert:
	default:
		if n.metrics != nil {
			n.metrics.dropped.Inc()
		}
		n.logger.Warn(
			"alert queue full, dropping alert",
			"component", "notify",
			"source", alert.Source,
			"message", alert.Message,
		)
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.quit:
			return
		case alert := <-n.queue:
			n.deliver(alert)
		}
	}
}

func (n *Notifier) deliver(alert Alert) {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.maxDeliveryTime,
	)
	defer cancel()
	_, err := backoff.Retry(
		ctx,
		func() (struct{}, error) {
			return struct{}{}, n.sink.Deliver(ctx, alert)
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
	if err != nil {
		n.logger.Error(
			"alert delivery failed",
			"component", "notify",
			"source", alert.Source,
			"error", err,
		)
	}
}

// Stop shuts down the delivery worker
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.quit)
	})
	n.wg.Wait()
}
