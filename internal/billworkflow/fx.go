package billworkflow

import (
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.workflow",
	fx.Provide(func(bills billdomain.Service, patients patientdomain.Service) Gateway {
		return NewServiceGateway(bills, patients)
	}),
	fx.Provide(NewSessions),
)
