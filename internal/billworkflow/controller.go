package billworkflow

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/medicore/internal/authorization"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"go.uber.org/zap"
)

type State string

const (
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

const (
	MessageCreated      = "Bill created successfully!"
	MessageNotPermitted = "You do not have permission to create bills"

	PatientListLimit = 100
)

var ErrCreateNotAllowed = errors.New("bill_create_not_allowed")

type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Snapshot is a copy of the controller state at one instant.
type Snapshot struct {
	Key             string                  `json:"key"`
	State           State                   `json:"state"`
	Draft           billdomain.Draft        `json:"draft"`
	Totals          billdomain.Totals       `json:"totals"`
	Notice          *Notice                 `json:"notice,omitempty"`
	CanCreate       bool                    `json:"can_create"`
	Bills           []billdomain.Bill       `json:"bills"`
	BillsTotal      int64                   `json:"bills_total"`
	Patients        []patientdomain.Patient `json:"patients"`
	LoadingBills    bool                    `json:"loading_bills"`
	LoadingPatients bool                    `json:"loading_patients"`
	LastBill        *billdomain.Bill        `json:"last_bill,omitempty"`
}

type Params struct {
	Key     string
	Actor   authorization.Actor
	Gateway Gateway
	Log     *zap.Logger
}

// Controller drives one bill draft from composition to submission for a
// single actor.
type Controller struct {
	key     string
	actor   authorization.Actor
	gateway Gateway
	log     *zap.Logger

	inFlight atomic.Bool

	mu              sync.Mutex
	state           State
	draft           billdomain.Draft
	submissionKey   string
	notice          *Notice
	bills           []billdomain.Bill
	billsTotal      int64
	patients        []patientdomain.Patient
	loadingBills    bool
	loadingPatients bool
	lastBill        *billdomain.Bill
}

func New(p Params) *Controller {
	key := p.Key
	if key == "" {
		key = ulid.Make().String()
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		key:           key,
		actor:         p.Actor,
		gateway:       p.Gateway,
		log:           log.Named("bill.workflow").With(zap.String("draft_key", key)),
		state:         StateEmpty,
		draft:         billdomain.NewDraft(),
		submissionKey: ulid.Make().String(),
	}
}

func (c *Controller) Key() string { return c.key }

func (c *Controller) Actor() authorization.Actor { return c.actor }

func (c *Controller) CanCreate() bool {
	return authorization.CanCreateBill(c.actor.Role)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Draft() billdomain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Totals runs the bill computation over the current draft.
func (c *Controller) Totals() billdomain.Totals {
	return c.Draft().Totals()
}

func (c *Controller) AddItem() error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.AddItem(), nil
	})
}

func (c *Controller) UpdateItem(index int, field billdomain.Field, value string) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.UpdateItem(index, field, value)
	})
}

func (c *Controller) RemoveItem(index int) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.RemoveItem(index)
	})
}

func (c *Controller) SetPatient(patientID string) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetPatient(patientID), nil
	})
}

func (c *Controller) SetDiscount(discount float64) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetDiscount(discount)
	})
}

func (c *Controller) SetTax(rate float64) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetTax(rate)
	})
}

func (c *Controller) SetPaymentStatus(status billdomain.PaymentStatus) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetPaymentStatus(status)
	})
}

func (c *Controller) SetPaymentMethod(method billdomain.PaymentMethod) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetPaymentMethod(method)
	})
}

func (c *Controller) SetNotes(notes string) error {
	return c.apply(func(d billdomain.Draft) (billdomain.Draft, error) {
		return d.SetNotes(notes), nil
	})
}

// Update runs fn against the current draft and keeps its result only when
// fn succeeds, so a multi-field edit lands whole or not at all.
func (c *Controller) Update(fn func(billdomain.Draft) (billdomain.Draft, error)) error {
	return c.apply(fn)
}

// apply swaps in the draft produced by fn. The draft is frozen while a
// submission is outstanding.
func (c *Controller) apply(fn func(billdomain.Draft) (billdomain.Draft, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return billdomain.ErrSubmissionInFlight
	}
	next, err := fn(c.draft)
	if err != nil {
		return err
	}
	c.draft = next
	c.state = StateEditing
	return nil
}

// Submit validates the draft and sends it to the gateway. On success the
// draft is reset and the bill list re-fetched; on failure the draft is kept
// as it was so the user can retry.
func (c *Controller) Submit(ctx context.Context) (billdomain.Bill, error) {
	if !c.CanCreate() {
		c.setNotice(NoticeError, MessageNotPermitted)
		return billdomain.Bill{}, ErrCreateNotAllowed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return billdomain.Bill{}, billdomain.ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	draft := c.draft
	if err := draft.Validate(); err != nil {
		c.state = StateEditing
		c.notice = &Notice{Kind: NoticeError, Message: billdomain.MessageOf(err)}
		c.mu.Unlock()
		return billdomain.Bill{}, err
	}
	req := draft.Request()
	req.IdempotencyKey = c.submissionKey
	c.state = StateSubmitting
	c.notice = nil
	c.mu.Unlock()

	start := time.Now()
	bill, err := c.gateway.CreateBill(ctx, c.actor, req)
	if err != nil {
		message := billdomain.MessageOf(err)
		if message == "" {
			message = billdomain.DefaultCreateMessage
		}
		c.log.Warn("bill submission failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)

		c.mu.Lock()
		c.state = StateEditing
		c.notice = &Notice{Kind: NoticeError, Message: message}
		c.mu.Unlock()
		return billdomain.Bill{}, err
	}

	c.mu.Lock()
	c.state = StateSubmitted
	c.draft = billdomain.NewDraft()
	c.submissionKey = ulid.Make().String()
	c.notice = &Notice{Kind: NoticeSuccess, Message: MessageCreated}
	c.lastBill = &bill
	c.mu.Unlock()

	c.log.Info("bill submitted", zap.String("bill_number", bill.BillNumber))
	c.RefreshBills(ctx)
	return bill, nil
}

// Load fetches the bill list and the patient selector options.
func (c *Controller) Load(ctx context.Context) {
	c.RefreshBills(ctx)
	c.LoadPatients(ctx)
}

// RefreshBills replaces the bill list with a fresh fetch. A failed fetch
// leaves the list empty.
func (c *Controller) RefreshBills(ctx context.Context) {
	c.mu.Lock()
	c.loadingBills = true
	c.mu.Unlock()

	resp, err := c.gateway.ListBills(ctx, c.actor)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingBills = false
	if err != nil {
		c.log.Error("fetch bills", zap.Error(err))
		c.bills = nil
		c.billsTotal = 0
		return
	}
	c.bills = resp.Bills
	c.billsTotal = resp.Total
}

func (c *Controller) LoadPatients(ctx context.Context) {
	c.mu.Lock()
	c.loadingPatients = true
	c.mu.Unlock()

	patients, err := c.gateway.ListPatients(ctx, c.actor, PatientListLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingPatients = false
	if err != nil {
		c.log.Error("fetch patients", zap.Error(err))
		c.patients = nil
		return
	}
	c.patients = patients
}

// Discard drops the draft. Nothing has been written, so nothing is undone.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return billdomain.ErrSubmissionInFlight
	}
	c.draft = billdomain.NewDraft()
	c.submissionKey = ulid.Make().String()
	c.state = StateEmpty
	c.notice = nil
	return nil
}

func (c *Controller) Notice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return nil
	}
	n := *c.notice
	return &n
}

func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = nil
	c.mu.Unlock()
}

func (c *Controller) setNotice(kind, message string) {
	c.mu.Lock()
	c.notice = &Notice{Kind: kind, Message: message}
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Key:             c.key,
		State:           c.state,
		Draft:           c.draft,
		Totals:          c.draft.Totals(),
		CanCreate:       authorization.CanCreateBill(c.actor.Role),
		Bills:           slices.Clone(c.bills),
		BillsTotal:      c.billsTotal,
		Patients:        slices.Clone(c.patients),
		LoadingBills:    c.loadingBills,
		LoadingPatients: c.loadingPatients,
	}
	snap.Draft.Items = slices.Clone(c.draft.Items)
	if c.notice != nil {
		n := *c.notice
		snap.Notice = &n
	}
	if c.lastBill != nil {
		b := *c.lastBill
		snap.LastBill = &b
	}
	if snap.Bills == nil {
		snap.Bills = []billdomain.Bill{}
	}
	if snap.Patients == nil {
		snap.Patients = []patientdomain.Patient{}
	}
	return snap
}
