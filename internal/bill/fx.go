package bill

import (
	"github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/bill/repository"
	"github.com/smallbiznis/medicore/internal/bill/service"
	"github.com/smallbiznis/medicore/internal/lock"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(l lock.Locker) domain.Locker { return l }),
)
