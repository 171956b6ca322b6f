// Package netx watches whether the backend is reachable.
package netx

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/tomb.v2"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 3 * time.Second
)

// Prober answers whether the backend is reachable right now.
type Prober interface {
	HealthCheck(ctx context.Context) bool
}

// Monitor probes the backend on a fixed interval and publishes changes of
// the reachability state. The state starts as offline, so the first
// successful probe is reported as a transition.
type Monitor struct {
	probe    Prober
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger
	gauge    prometheus.Gauge

	online atomic.Bool
	events chan bool
	t      *tomb.Tomb
}

// NewMonitor returns a stopped monitor. Zero durations select the defaults;
// gauge may be nil.
func NewMonitor(p Prober, interval, timeout time.Duration, log logging.Logger, gauge prometheus.Gauge) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		probe:    p,
		interval: interval,
		timeout:  timeout,
		log:      log,
		gauge:    gauge,
		events:   make(chan bool),
	}
}

// Online reports the result of the most recent probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Events delivers every change of the reachability state, in order. It is
// closed once the monitor stops.
func (m *Monitor) Events() <-chan bool {
	return m.events
}

// Start probes once right away, then every interval, until ctx is done or
// Stop is called. It must be called at most once.
func (m *Monitor) Start(ctx context.Context) {
	t, ctx := tomb.WithContext(ctx)
	m.t = t
	t.Go(func() error {
		return m.loop(ctx)
	})
}

// Stop ends probing and waits for the loop to exit.
func (m *Monitor) Stop() error {
	if m.t == nil {
		return nil
	}
	m.t.Kill(nil)
	err := m.t.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Monitor) loop(ctx context.Context) error {
	defer close(m.events)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-m.t.Dying():
			return nil
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	up := m.probe.HealthCheck(pctx)
	cancel()

	// a probe cut short by shutdown says nothing about the backend
	if !m.t.Alive() {
		return
	}
	if m.online.Swap(up) == up {
		return
	}

	if m.gauge != nil {
		if up {
			m.gauge.Set(1)
		} else {
			m.gauge.Set(0)
		}
	}
	if up {
		m.log.Info(ctx, "switched to online mode")
	} else {
		m.log.Warn(ctx, "switched to offline mode")
	}

	select {
	case m.events <- up:
	case <-m.t.Dying():
	}
}
