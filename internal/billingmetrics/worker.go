package billingmetrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Minute
	refreshTimeout  = 5 * time.Second
)

// Worker refreshes the billing gauges on a fixed interval and pushes them
// when a pusher is configured.
type Worker struct {
	collector *Collector
	source    SummarySource
	pusher    Pusher
	gatherer  prometheus.Gatherer
	interval  time.Duration
	log       *zap.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	errorOnce atomic.Bool
}

func NewWorker(collector *Collector, source SummarySource, pusher Pusher, interval time.Duration, log *zap.Logger) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		collector: collector,
		source:    source,
		pusher:    pusher,
		gatherer:  collector.Registry(),
		interval:  interval,
		log:       log,
	}
}

func (w *Worker) Start() {
	if w == nil || w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.RunOnce(context.Background())
		for {
			select {
			case <-ticker.C:
				w.RunOnce(context.Background())
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Worker) Stop(ctx context.Context) error {
	if w == nil || w.stopCh == nil {
		return nil
	}
	close(w.stopCh)
	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes the gauges and pushes them. Failures are logged once
// until the next success.
func (w *Worker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if err := w.collector.Refresh(ctx, w.source); err != nil {
		w.logError("billing metrics refresh failed", err)
		return
	}
	if w.pusher != nil {
		if err := w.pusher.Push(ctx, w.gatherer); err != nil {
			w.logError("billing metrics push failed", err)
			return
		}
	}
	w.errorOnce.Store(false)
}

func (w *Worker) logError(msg string, err error) {
	if w.errorOnce.CompareAndSwap(false, true) {
		w.log.Warn(msg, zap.Error(err))
	}
}
