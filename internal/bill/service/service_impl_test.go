package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	auditrepo "github.com/smallbiznis/medicore/internal/audit/repository"
	auditservice "github.com/smallbiznis/medicore/internal/audit/service"
	"github.com/smallbiznis/medicore/internal/authorization"
	"github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/bill/repository"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/lock"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	patientrepo "github.com/smallbiznis/medicore/internal/patient/repository"
	patientservice "github.com/smallbiznis/medicore/internal/patient/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	receptionist = authorization.Actor{ID: "u-1", Role: authorization.RoleReceptionist}
	doctor       = authorization.Actor{ID: "u-2", Role: authorization.RoleDoctor}
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	clock   *clock.FakeClock
	locker  *lock.MemoryLocker
	patient patientdomain.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Bill{},
		&domain.BillItem{},
		&patientdomain.Patient{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, time.March, 7, 9, 30, 0, 0, time.UTC))

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  auditrepo.Provide(),
	})
	authzSvc := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, AuditSvc: auditSvc})

	patients := patientrepo.Provide()
	patient := patientdomain.Patient{
		ID:        node.Generate(),
		Name:      "Asha Verma",
		Age:       34,
		Contact:   "9876543210",
		Type:      patientdomain.TypeOPD,
		Status:    "Active",
		CreatedAt: fake.Now(),
		UpdatedAt: fake.Now(),
	}
	require.NoError(t, patients.Insert(context.Background(), db, &patient))

	patientSvc := patientservice.New(patientservice.Params{
		DB:       db,
		Log:      log,
		Repo:     patients,
		AuthzSvc: authzSvc,
	})

	locker := lock.NewMemoryLocker(fake)
	svc := New(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       repository.Provide(),
		AuthzSvc:   authzSvc,
		PatientSvc: patientSvc,
		InvoiceCfg: config.NewStaticInvoiceConfigHolder(config.DefaultInvoiceConfig()),
		AuditSvc:   auditSvc,
		Locker:     locker,
	})

	return &fixture{db: db, svc: svc, clock: fake, locker: locker, patient: patient}
}

func price(v float64) *float64 { return &v }

func (f *fixture) scenarioA() domain.CreateBillRequest {
	return domain.CreateBillRequest{
		PatientID: f.patient.ID.String(),
		Items: []domain.ItemInput{
			{ServiceName: "Consultation Fee", Quantity: 1, UnitPrice: price(500)},
			{ServiceName: "X-Ray", Quantity: 2, UnitPrice: price(300)},
		},
		Discount:      100,
		Tax:           5,
		PaymentStatus: "Pending",
		PaymentMethod: "Cash",
	}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestCreateScenarioA(t *testing.T) {
	f := newFixture(t)

	bill, err := f.svc.Create(context.Background(), receptionist, f.scenarioA())
	require.NoError(t, err)

	assert.Equal(t, 1100.0, bill.Subtotal)
	assert.Equal(t, 55.0, bill.TaxAmount)
	assert.Equal(t, 1055.0, bill.TotalAmount)
	assert.Equal(t, "BILL-20260307-00001", bill.BillNumber)
	assert.Equal(t, "u-1", bill.CreatedBy)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, 600.0, bill.Items[1].LineTotal)
	require.NotNil(t, bill.Patient)
	assert.Equal(t, "Asha Verma", bill.Patient.Name)

	stored, err := f.svc.GetByID(context.Background(), doctor, bill.ID.String())
	require.NoError(t, err)
	assert.Equal(t, bill.TotalAmount, stored.TotalAmount)
	assert.Equal(t, bill.BillNumber, stored.BillNumber)
	assert.Len(t, stored.Items, 2)

	var audits []auditdomain.AuditLog
	require.NoError(t, f.db.Where("action = ?", string(auditdomain.ActionBillCreated)).Find(&audits).Error)
	require.Len(t, audits, 1)
	require.NotNil(t, audits[0].ActorRole)
	assert.Equal(t, string(receptionist.Role), *audits[0].ActorRole)
}

func TestCreateAssignsIncreasingNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, receptionist, f.scenarioA())
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.Create(ctx, receptionist, f.scenarioA())
	require.NoError(t, err)

	assert.Equal(t, "BILL-20260307-00001", first.BillNumber)
	assert.Equal(t, "BILL-20260307-00002", second.BillNumber)
}

func TestCreateDeniedForDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), doctor, f.scenarioA())
	assert.ErrorIs(t, err, authorization.ErrForbidden)
	assert.Zero(t, countRows(t, f.db, "bills"))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.scenarioA()
	req.PatientID = ""
	_, err := f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrPatientRequired)

	req = f.scenarioA()
	req.Items = []domain.ItemInput{{ServiceName: "Consultation Fee"}, {UnitPrice: price(100)}}
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrNoCompleteItems)
	assert.Equal(t, "Add at least one service", domain.MessageOf(err))

	req = f.scenarioA()
	req.Tax = 120
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrInvalidTaxRate)

	req = f.scenarioA()
	req.PaymentStatus = "Refunded"
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	req = f.scenarioA()
	req.PatientID = "999"
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)

	assert.Zero(t, countRows(t, f.db, "bills"))
	assert.Zero(t, countRows(t, f.db, "bill_items"))
}

func TestCreateChecksClientTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.scenarioA()
	req.Subtotal = price(1100)
	req.TaxAmount = price(55)
	req.TotalAmount = price(1155)
	_, err := f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrTotalsMismatch)

	req.TotalAmount = price(1055.001)
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.NoError(t, err)
}

func TestCreateKeepsNegativeTotal(t *testing.T) {
	f := newFixture(t)

	bill, err := f.svc.Create(context.Background(), receptionist, domain.CreateBillRequest{
		PatientID: f.patient.ID.String(),
		Items:     []domain.ItemInput{{ServiceName: "Surgery", Quantity: 1, UnitPrice: price(10000)}},
		Discount:  12000,
	})
	require.NoError(t, err)
	assert.Equal(t, -2000.0, bill.TotalAmount)
	assert.Equal(t, domain.PaymentStatusPending, bill.PaymentStatus)
	assert.Equal(t, domain.PaymentMethodCash, bill.PaymentMethod)
}

func TestCreateIsIdempotentPerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.scenarioA()
	req.IdempotencyKey = "draft-01"

	first, err := f.svc.Create(ctx, receptionist, req)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, receptionist, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, int64(1), countRows(t, f.db, "bills"))
}

func TestCreateRejectsConcurrentSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok, err := f.locker.TryLock(ctx, "bill:create:draft-02", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	req := f.scenarioA()
	req.IdempotencyKey = "draft-02"
	_, err = f.svc.Create(ctx, receptionist, req)
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.Zero(t, countRows(t, f.db, "bills"))
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, receptionist, f.scenarioA())
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := f.svc.Create(ctx, receptionist, f.scenarioA())
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, doctor)
	require.NoError(t, err)
	require.Len(t, resp.Bills, 2)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, second.ID, resp.Bills[0].ID)
	assert.Equal(t, first.ID, resp.Bills[1].ID)
	assert.Len(t, resp.Bills[0].Items, 2)
	require.NotNil(t, resp.Bills[0].Patient)
}

func TestGetByIDErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetByID(ctx, doctor, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.GetByID(ctx, doctor, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(ctx, authorization.Actor{}, "12345")
	assert.ErrorIs(t, err, authorization.ErrInvalidActor)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, receptionist, f.scenarioA())
	require.NoError(t, err)
	paid := f.scenarioA()
	paid.PaymentStatus = "Paid"
	_, err = f.svc.Create(ctx, receptionist, paid)
	require.NoError(t, err)

	rows, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.PaymentStatusPaid, rows[0].PaymentStatus)
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, 1055.0, rows[0].Amount)
}

func TestServiceTemplates(t *testing.T) {
	f := newFixture(t)

	templates := f.svc.ServiceTemplates()
	assert.Contains(t, templates, "Consultation Fee")
	templates[0] = "changed"
	assert.NotEqual(t, "changed", f.svc.ServiceTemplates()[0])
}
