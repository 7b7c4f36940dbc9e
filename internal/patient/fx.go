package patient

import (
	"github.com/smallbiznis/medicore/internal/cache"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/patient/repository"
	"github.com/smallbiznis/medicore/internal/patient/service"
	"go.uber.org/fx"
)

var Module = fx.Module("patient.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(c clock.Clock) cache.PatientCache {
		return cache.NewPatientCache(cache.WithClock(c))
	}),
)
