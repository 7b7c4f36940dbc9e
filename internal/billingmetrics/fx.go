package billingmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billing.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewCollector),
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

type workerParams struct {
	fx.In

	Lc        fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	Collector *Collector
	Bills     billdomain.Service
	Pusher    Pusher `optional:"true"`
}

func startWorker(p workerParams) {
	log := p.Log.Named("billing.metrics")
	interval := time.Duration(p.Cfg.MetricsPush.Interval) * time.Second
	w := NewWorker(p.Collector, p.Bills, p.Pusher, interval, log)

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting billing metrics worker",
				zap.Duration("interval", w.interval),
				zap.Bool("push", p.Pusher != nil),
			)
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := w.Stop(ctx)
			if closer, ok := p.Pusher.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
			return err
		},
	})
}
