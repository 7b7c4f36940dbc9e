package audit

import (
	"github.com/smallbiznis/medicore/internal/audit/repository"
	"github.com/smallbiznis/medicore/internal/audit/service"
	"go.uber.org/fx"
)

// Module records bill creation and refused permission checks. The bill and
// authorization services take the audit service as an optional dependency.
var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
