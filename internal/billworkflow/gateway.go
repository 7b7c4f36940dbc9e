package billworkflow

import (
	"context"

	"github.com/smallbiznis/medicore/internal/authorization"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
)

//go:generate mockgen -source=gateway.go -destination=mock_gateway_test.go -package=billworkflow

// Gateway is everything the controller needs from the bill and patient
// stores.
type Gateway interface {
	ListBills(ctx context.Context, actor authorization.Actor) (billdomain.ListBillsResponse, error)
	CreateBill(ctx context.Context, actor authorization.Actor, req billdomain.CreateBillRequest) (billdomain.Bill, error)
	ListPatients(ctx context.Context, actor authorization.Actor, limit int) ([]patientdomain.Patient, error)
}

// ServiceGateway calls the in-process services.
type ServiceGateway struct {
	bills    billdomain.Service
	patients patientdomain.Service
}

func NewServiceGateway(bills billdomain.Service, patients patientdomain.Service) *ServiceGateway {
	return &ServiceGateway{bills: bills, patients: patients}
}

func (g *ServiceGateway) ListBills(ctx context.Context, actor authorization.Actor) (billdomain.ListBillsResponse, error) {
	return g.bills.List(ctx, actor)
}

func (g *ServiceGateway) CreateBill(ctx context.Context, actor authorization.Actor, req billdomain.CreateBillRequest) (billdomain.Bill, error) {
	return g.bills.Create(ctx, actor, req)
}

func (g *ServiceGateway) ListPatients(ctx context.Context, actor authorization.Actor, limit int) ([]patientdomain.Patient, error) {
	resp, err := g.patients.List(ctx, actor, patientdomain.ListPatientRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Patients, nil
}
