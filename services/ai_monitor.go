package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeremiapane/reservation-app/utils"
)

type Prober interface {
	Probe(ctx context.Context) error
}

// AIHealthMonitor polls the decision service on a ticker and remembers
// whether the last probe succeeded. It reports healthy until the first
// probe completes.
type AIHealthMonitor struct {
	prober   Prober
	Interval time.Duration
	StopChan chan struct{}
	healthy  atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

func NewAIHealthMonitor(prober Prober, interval time.Duration) *AIHealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &AIHealthMonitor{
		prober:   prober,
		Interval: interval,
		StopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.healthy.Store(true)
	return m
}

func (m *AIHealthMonitor) Healthy() bool {
	return m.healthy.Load()
}

func (m *AIHealthMonitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(m.done)
		m.check()

		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.StopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for it to exit.
func (m *AIHealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.StopChan) })
	if m.started.Load() {
		<-m.done
	}
}

func (m *AIHealthMonitor) check() {
	timeout := m.Interval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := m.prober.Probe(ctx)
	was := m.healthy.Swap(err == nil)

	switch {
	case err != nil && was:
		utils.ErrorLogger.Warnf("Decision service became unavailable: %v", err)
	case err == nil && !was:
		utils.InfoLogger.Info("Decision service is available again")
	}
}
