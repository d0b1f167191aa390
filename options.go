// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import "go.uber.org/zap"

// Option configures a ProcessQueue at construction time.
type Option func(*ProcessQueue)

// WithLogger attaches a structured logger. Workers log spawn/stop events
// and handler panics through it; a nil logger (the default) disables the
// event bus entirely rather than logging to a discard sink, since there
// is no point paying for the bus when nothing drains it.
func WithLogger(logger *zap.Logger) Option {
	return func(q *ProcessQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// MetricsHook receives scheduler observations. Implementations must be
// safe for concurrent use by every worker goroutine.
type MetricsHook interface {
	// ObserveProcCount reports the current live actor count after a spawn
	// or release.
	ObserveProcCount(n int64)
	// IncSpawned is called once per successful Spawn.
	IncSpawned()
	// IncSend is called once per Send, tagged with its outcome.
	IncSend(result SendResult)
}

// WithMetrics attaches a MetricsHook. See the metrics package for a
// Prometheus-backed implementation.
func WithMetrics(hook MetricsHook) Option {
	return func(q *ProcessQueue) {
		q.metrics = hook
	}
}
