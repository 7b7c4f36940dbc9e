package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/authorization"
	"github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/invoice/format"
	"github.com/smallbiznis/medicore/internal/observability/logger"
	"github.com/smallbiznis/medicore/internal/observability/metrics"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"github.com/smallbiznis/medicore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// totalsTolerance absorbs float formatting on the client side.
	totalsTolerance = 0.005

	submitLockTTL       = 30 * time.Second
	maxSequenceAttempts = 3
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	AuthzSvc   authorization.Service
	PatientSvc patientdomain.Service
	InvoiceCfg *config.InvoiceConfigHolder
	AuditSvc   auditdomain.Service `optional:"true"`
	Locker     domain.Locker       `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	authzSvc   authorization.Service
	patientSvc patientdomain.Service
	invoiceCfg *config.InvoiceConfigHolder
	auditSvc   auditdomain.Service
	locker     domain.Locker
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bill.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		authzSvc:   p.AuthzSvc,
		patientSvc: p.PatientSvc,
		invoiceCfg: p.InvoiceCfg,
		auditSvc:   p.AuditSvc,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateBillRequest) (domain.Bill, error) {
	if err := s.authzSvc.Authorize(ctx, actor, authorization.ObjectBill, authorization.ActionBillCreate); err != nil {
		return domain.Bill{}, err
	}

	draft, err := draftFromRequest(req)
	if err != nil {
		s.rejected(ctx, err)
		return domain.Bill{}, err
	}
	if err := draft.Validate(); err != nil {
		s.rejected(ctx, err)
		return domain.Bill{}, err
	}

	totals := draft.Totals()
	if !matches(req.Subtotal, totals.Subtotal) ||
		!matches(req.TaxAmount, totals.TaxAmount) ||
		!matches(req.TotalAmount, totals.TotalAmount) {
		s.rejected(ctx, domain.ErrTotalsMismatch)
		return domain.Bill{}, domain.ErrTotalsMismatch
	}

	patientID, err := snowflake.ParseString(draft.PatientID)
	if err != nil || patientID == 0 {
		s.rejected(ctx, domain.ErrPatientNotFound)
		return domain.Bill{}, domain.ErrPatientNotFound
	}
	patient, err := s.patientSvc.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, patientdomain.ErrNotFound) || errors.Is(err, patientdomain.ErrInvalidID) {
			s.rejected(ctx, domain.ErrPatientNotFound)
			return domain.Bill{}, domain.ErrPatientNotFound
		}
		return domain.Bill{}, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		release, err := s.acquire(ctx, key)
		if err != nil {
			return domain.Bill{}, err
		}
		defer release()

		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, key)
		if err != nil {
			return domain.Bill{}, err
		}
		if existing != nil {
			return s.hydrate(ctx, *existing)
		}
	}

	now := s.clock.Now().UTC()
	bill := domain.Bill{
		ID:            s.genID.Generate(),
		PatientID:     patientID,
		Subtotal:      totals.Subtotal,
		Discount:      draft.Discount,
		TaxRate:       draft.TaxRate,
		TaxAmount:     totals.TaxAmount,
		TotalAmount:   totals.TotalAmount,
		PaymentStatus: draft.PaymentStatus,
		PaymentMethod: draft.PaymentMethod,
		Notes:         strings.TrimSpace(draft.Notes),
		CreatedBy:     strings.TrimSpace(actor.ID),
		CreatedAt:     now,
	}
	if key != "" {
		bill.IdempotencyKey = &key
	}

	items := make([]domain.BillItem, 0, len(totals.Items))
	for i, item := range totals.Items {
		items = append(items, domain.BillItem{
			ID:          s.genID.Generate(),
			BillID:      bill.ID,
			Position:    i + 1,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price(),
			LineTotal:   item.LineTotal,
		})
	}

	if err := s.insert(ctx, &bill, items); err != nil {
		return domain.Bill{}, err
	}
	bill.Items = items
	bill.Patient = summarize(patient)

	log := logger.WithContext(ctx, s.log)
	if totals.IsNegative() {
		log.Warn("bill saved with negative total",
			zap.String("bill_id", bill.ID.String()),
			zap.Float64("total_amount", bill.TotalAmount),
		)
		s.metrics.RecordNegativeTotal(ctx)
	}
	s.metrics.RecordBillCreated(ctx, string(bill.PaymentStatus), string(bill.PaymentMethod))
	s.audit(ctx, actor, bill)
	log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.Int("items", len(items)),
	)

	return bill, nil
}

// insert assigns the next sequence and writes the bill with its items in
// one transaction. A concurrent create taking the same sequence makes the
// unique index fail and the whole attempt is retried.
func (s *Service) insert(ctx context.Context, bill *domain.Bill, items []domain.BillItem) error {
	template := s.invoiceCfg.Get().NumberTemplate
	if template == "" {
		template = format.DefaultBillNumberTemplate
	}

	var lastErr error
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := s.repo.NextSequence(ctx, tx)
			if err != nil {
				return err
			}
			number, err := format.FormatBillNumber(template, bill.CreatedAt, seq)
			if err != nil {
				return err
			}
			bill.Sequence = seq
			bill.BillNumber = number

			if err := s.repo.Insert(ctx, tx, bill); err != nil {
				return err
			}
			return s.repo.InsertItems(ctx, tx, items)
		})
		if lastErr == nil || !db.IsDuplicateKeyErr(lastErr) {
			return lastErr
		}
		s.log.Debug("bill sequence taken, retrying", zap.Int("attempt", attempt+1))
	}
	return lastErr
}

func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lockKey := "bill:create:" + key
	token, ok, err := s.locker.TryLock(ctx, lockKey, submitLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.rejected(ctx, domain.ErrSubmissionInFlight)
		return nil, domain.ErrSubmissionInFlight
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.log.Warn("release submission lock", zap.Error(err))
		}
	}, nil
}

func (s *Service) List(ctx context.Context, actor authorization.Actor) (domain.ListBillsResponse, error) {
	if err := s.authzSvc.Authorize(ctx, actor, authorization.ObjectBill, authorization.ActionBillView); err != nil {
		return domain.ListBillsResponse{}, err
	}

	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return domain.ListBillsResponse{}, err
	}

	bills := make([]domain.Bill, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		bills = append(bills, *row)
	}
	if err := s.attach(ctx, bills); err != nil {
		return domain.ListBillsResponse{}, err
	}

	return domain.ListBillsResponse{Bills: bills, Total: int64(len(bills))}, nil
}

func (s *Service) GetByID(ctx context.Context, actor authorization.Actor, id string) (domain.Bill, error) {
	if err := s.authzSvc.Authorize(ctx, actor, authorization.ObjectBill, authorization.ActionBillView); err != nil {
		return domain.Bill{}, err
	}

	billID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || billID == 0 {
		return domain.Bill{}, domain.ErrInvalidID
	}

	row, err := s.repo.FindByID(ctx, s.db, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if row == nil {
		return domain.Bill{}, domain.ErrNotFound
	}
	return s.hydrate(ctx, *row)
}

func (s *Service) Summary(ctx context.Context) ([]domain.StatusSummary, error) {
	return s.repo.SummarizeByStatus(ctx, s.db)
}

func (s *Service) ServiceTemplates() []string {
	return domain.ServiceTemplates()
}

func (s *Service) hydrate(ctx context.Context, bill domain.Bill) (domain.Bill, error) {
	bills := []domain.Bill{bill}
	if err := s.attach(ctx, bills); err != nil {
		return domain.Bill{}, err
	}
	return bills[0], nil
}

// attach loads items and patient summaries for bills in place.
func (s *Service) attach(ctx context.Context, bills []domain.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	billIDs := make([]snowflake.ID, 0, len(bills))
	patientIDs := make([]snowflake.ID, 0, len(bills))
	seen := map[snowflake.ID]struct{}{}
	for _, bill := range bills {
		billIDs = append(billIDs, bill.ID)
		if _, ok := seen[bill.PatientID]; !ok {
			seen[bill.PatientID] = struct{}{}
			patientIDs = append(patientIDs, bill.PatientID)
		}
	}

	items, err := s.repo.ListItems(ctx, s.db, billIDs)
	if err != nil {
		return err
	}
	byBill := make(map[snowflake.ID][]domain.BillItem, len(bills))
	for _, item := range items {
		byBill[item.BillID] = append(byBill[item.BillID], item)
	}

	patients, err := s.patientSvc.Lookup(ctx, patientIDs)
	if err != nil {
		return err
	}

	for i := range bills {
		bills[i].Items = byBill[bills[i].ID]
		if bills[i].Items == nil {
			bills[i].Items = []domain.BillItem{}
		}
		if patient, ok := patients[bills[i].PatientID]; ok {
			bills[i].Patient = summarize(patient)
		}
	}
	return nil
}

func (s *Service) rejected(ctx context.Context, err error) {
	var e *domain.Error
	if errors.As(err, &e) {
		s.metrics.RecordBillRejected(ctx, e.Code)
	}
}

func (s *Service) audit(ctx context.Context, actor authorization.Actor, bill domain.Bill) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     auditdomain.ActionBillCreated,
		TargetType: "bill",
		TargetID:   bill.ID.String(),
		Metadata: map[string]any{
			"bill_number":    bill.BillNumber,
			"patient_id":     bill.PatientID.String(),
			"total_amount":   bill.TotalAmount,
			"payment_status": string(bill.PaymentStatus),
		},
	})
	if err != nil {
		s.log.Warn("audit bill.created", zap.Error(err))
	}
}

func draftFromRequest(req domain.CreateBillRequest) (domain.Draft, error) {
	draft := domain.NewDraft().SetPatient(req.PatientID).SetNotes(req.Notes)
	draft.Items = make([]domain.LineItem, 0, len(req.Items))
	for _, input := range req.Items {
		item := domain.NewLineItem().WithServiceName(input.ServiceName)
		qty := input.Quantity
		if qty == 0 {
			qty = 1
		}
		item, err := item.WithQuantity(qty)
		if err != nil {
			return domain.Draft{}, err
		}
		if input.UnitPrice != nil {
			item, err = item.WithUnitPrice(*input.UnitPrice)
			if err != nil {
				return domain.Draft{}, err
			}
		}
		draft.Items = append(draft.Items, item)
	}

	var err error
	if draft, err = draft.SetDiscount(req.Discount); err != nil {
		return domain.Draft{}, err
	}
	if draft, err = draft.SetTax(req.Tax); err != nil {
		return domain.Draft{}, err
	}
	if strings.TrimSpace(req.PaymentStatus) != "" {
		if draft, err = draft.SetPaymentStatus(domain.PaymentStatus(req.PaymentStatus)); err != nil {
			return domain.Draft{}, err
		}
	}
	if strings.TrimSpace(req.PaymentMethod) != "" {
		if draft, err = draft.SetPaymentMethod(domain.PaymentMethod(req.PaymentMethod)); err != nil {
			return domain.Draft{}, err
		}
	}
	return draft, nil
}

func matches(claimed *float64, computed float64) bool {
	if claimed == nil {
		return true
	}
	return math.Abs(*claimed-computed) <= totalsTolerance
}

func summarize(p patientdomain.Patient) *domain.PatientSummary {
	return &domain.PatientSummary{
		ID:      p.ID,
		Name:    p.Name,
		Type:    p.Type,
		Ward:    p.Ward,
		Contact: p.Contact,
	}
}
