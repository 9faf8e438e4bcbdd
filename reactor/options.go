// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/control"
)

// DefaultPollTimeout bounds one wait when no timer is due sooner.
const DefaultPollTimeout = 10 * time.Second

// Option customizes loop construction.
type Option func(*options)

type options struct {
	name        string
	pollTimeout time.Duration
	cpu         int   // -1 leaves the loop thread unpinned
	cpus        []int // spread over the loops of a LoopGroup
	log         *logrus.Entry
	metrics     *control.Metrics
}

func defaultOptions() options {
	return options{pollTimeout: DefaultPollTimeout, cpu: -1}
}

// WithName sets the loop name used in logs and metric labels.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithPollTimeout caps a single readiness wait.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollTimeout = d
		}
	}
}

// WithCPU pins the loop thread to cpu while the loop runs.
func WithCPU(cpu int) Option {
	return func(o *options) { o.cpu = cpu }
}

// WithCPUs assigns the loops of a LoopGroup to cpus round-robin.
func WithCPUs(cpus []int) Option {
	return func(o *options) { o.cpus = append([]int(nil), cpus...) }
}

// WithLogger attaches a logger.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics attaches collectors. A nil value disables recording.
func WithMetrics(m *control.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfig applies the loop-related fields of cfg.
func WithConfig(cfg control.Config) Option {
	return func(o *options) {
		if d := time.Duration(cfg.PollTimeout); d > 0 {
			o.pollTimeout = d
		}
		if len(cfg.LoopCPUs) > 0 {
			o.cpus = append([]int(nil), cfg.LoopCPUs...)
		}
	}
}
