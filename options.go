package mpcnet

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
)

const (
	defaultRetryInterval  = 10 * time.Millisecond
	defaultConnectTimeout = 30 * time.Second
)

type config struct {
	logHandler     slog.Handler
	msink          metrics.MetricSink
	metricLabels   []metrics.Label
	retryInterval  time.Duration
	connectTimeout time.Duration
}

// Option to pass to `Create`
type Option func(*config) error

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted
// by a `Net`.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced by a `Net`.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithRetryInterval controls how long a dialing party sleeps between two
// connection attempts during mesh establishment.
func WithRetryInterval(interval time.Duration) Option {
	return func(c *config) error {
		if interval < 0 {
			return errors.New("retry interval must not be negative")
		}
		if interval == 0 {
			interval = defaultRetryInterval
		}
		c.retryInterval = interval
		return nil
	}
}

// WithConnectTimeout controls how much wall-clock time a dialing party
// keeps retrying an unreachable peer before giving up on the mesh.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return errors.New("connect timeout must not be negative")
		}
		if timeout == 0 {
			timeout = defaultConnectTimeout
		}
		c.connectTimeout = timeout
		return nil
	}
}
