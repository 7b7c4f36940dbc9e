package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/authorization"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/billworkflow"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/config"
	invoicedomain "github.com/smallbiznis/medicore/internal/invoice/domain"
	"github.com/smallbiznis/medicore/internal/observability"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type policyAuthz struct{}

func (policyAuthz) Authorize(_ context.Context, actor authorization.Actor, _ string, action string) error {
	if !actor.Authenticated() {
		return authorization.ErrInvalidActor
	}
	if !authorization.Allowed(actor.Role, action) {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeBillService struct {
	createReqs []billdomain.CreateBillRequest
	createErr  error
	bills      []billdomain.Bill
}

func (f *fakeBillService) Create(_ context.Context, actor authorization.Actor, req billdomain.CreateBillRequest) (billdomain.Bill, error) {
	f.createReqs = append(f.createReqs, req)
	if !authorization.CanCreateBill(actor.Role) {
		return billdomain.Bill{}, authorization.ErrForbidden
	}
	if f.createErr != nil {
		return billdomain.Bill{}, f.createErr
	}
	bill := billdomain.Bill{
		ID:            snowflake.ID(42),
		BillNumber:    "BILL-20240115-00001",
		PaymentStatus: billdomain.PaymentStatusPending,
		PaymentMethod: billdomain.PaymentMethodCash,
		TotalAmount:   1055,
	}
	f.bills = append([]billdomain.Bill{bill}, f.bills...)
	return bill, nil
}

func (f *fakeBillService) List(context.Context, authorization.Actor) (billdomain.ListBillsResponse, error) {
	return billdomain.ListBillsResponse{Bills: f.bills, Total: int64(len(f.bills))}, nil
}

func (f *fakeBillService) GetByID(_ context.Context, _ authorization.Actor, id string) (billdomain.Bill, error) {
	for _, b := range f.bills {
		if b.ID.String() == id {
			return b, nil
		}
	}
	return billdomain.Bill{}, billdomain.ErrNotFound
}

func (f *fakeBillService) Summary(context.Context) ([]billdomain.StatusSummary, error) {
	return nil, nil
}

func (f *fakeBillService) ServiceTemplates() []string {
	return billdomain.ServiceTemplates()
}

type fakePatientService struct {
	lastReq patientdomain.ListPatientRequest
}

func (f *fakePatientService) List(_ context.Context, _ authorization.Actor, req patientdomain.ListPatientRequest) (patientdomain.ListPatientResponse, error) {
	f.lastReq = req
	return patientdomain.ListPatientResponse{Patients: []patientdomain.Patient{
		{ID: snowflake.ID(1), Name: "Rahul Sharma", Type: patientdomain.TypeIPD, Ward: "General Ward"},
	}}, nil
}

func (f *fakePatientService) GetByID(context.Context, snowflake.ID) (patientdomain.Patient, error) {
	return patientdomain.Patient{}, patientdomain.ErrNotFound
}

func (f *fakePatientService) Lookup(context.Context, []snowflake.ID) (map[snowflake.ID]patientdomain.Patient, error) {
	return nil, nil
}

type fakeInvoiceService struct{}

func (fakeInvoiceService) Render(_ context.Context, _ authorization.Actor, billID string, format invoicedomain.Format) (invoicedomain.Rendered, error) {
	if billID != "42" {
		return invoicedomain.Rendered{}, billdomain.ErrNotFound
	}
	if format == invoicedomain.FormatPDF {
		return invoicedomain.Rendered{
			Format:      format,
			ContentType: "application/pdf",
			FileName:    "invoice-bill-20240115-00001.pdf",
			Body:        []byte("%PDF-1.3"),
		}, nil
	}
	return invoicedomain.Rendered{
		Format:      format,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte("<html>BILL-20240115-00001</html>"),
	}, nil
}

type fakeAuditService struct{}

func (fakeAuditService) Record(context.Context, auditdomain.Entry) error {
	return nil
}

func (fakeAuditService) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type testServer struct {
	engine   *gin.Engine
	bills    *fakeBillService
	patients *fakePatientService
	registry *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	engine := NewEngine(observability.Config{Environment: "test"}, nil, registry)

	bills := &fakeBillService{}
	patients := &fakePatientService{}
	sessions := billworkflow.NewSessions(billworkflow.SessionParams{
		Gateway: billworkflow.NewServiceGateway(bills, patients),
		Log:     zap.NewNop(),
		Clock:   clock.SystemClock{},
	})

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{Environment: "test"},
		AuthzSvc:   policyAuthz{},
		AuditSvc:   fakeAuditService{},
		BillSvc:    bills,
		PatientSvc: patients,
		InvoiceSvc: fakeInvoiceService{},
		Drafts:     sessions,
	})
	srv.RegisterRoutes()

	return &testServer{engine: engine, bills: bills, patients: patients, registry: registry}
}

func (ts *testServer) do(t *testing.T, method, path string, role authorization.Role, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderActorID, "user-"+string(role))
		req.Header.Set(HeaderActorRole, string(role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

type draftEnvelope struct {
	Data billworkflow.Snapshot `json:"data"`
}

func decodeDraft(t *testing.T, rec *httptest.ResponseRecorder) billworkflow.Snapshot {
	t.Helper()
	var resp draftEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medicore_test_gauge"})
	ts.registry.MustRegister(gauge)
	gauge.Set(3)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medicore_test_gauge 3")
}

func TestAPIRequiresActor(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bills", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestCapabilities(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/me/capabilities", authorization.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp capabilitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.CanCreateBill)
	assert.True(t, resp.CanViewBill)
	assert.Contains(t, resp.Capabilities, authorization.ActionBillView)
	assert.NotContains(t, resp.Capabilities, authorization.ActionBillCreate)
	assert.Equal(t, "user-Doctor", resp.Actor.ID)
}

func TestCreateBill(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"patient_id": "1",
		"items":      []map[string]any{{"service_name": "Consultation", "quantity": 1, "unit_price": 500}},
	}

	rec := ts.do(t, http.MethodPost, "/api/bills", authorization.RoleReceptionist, body, headerIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.bills.createReqs, 1)
	assert.Equal(t, "key-1", ts.bills.createReqs[0].IdempotencyKey)
	assert.Equal(t, "1", ts.bills.createReqs[0].PatientID)
}

func TestCreateBillErrors(t *testing.T) {
	tests := []struct {
		name    string
		role    authorization.Role
		err     error
		status  int
		message string
	}{
		{"validation", authorization.RoleReceptionist, billdomain.ErrPatientRequired, http.StatusBadRequest, "Please select a patient"},
		{"wrapped validation", authorization.RoleAdmin, fmt.Errorf("create bill: %w", billdomain.ErrInvalidTaxRate), http.StatusBadRequest, "Tax must be between 0 and 100"},
		{"in flight", authorization.RoleAdmin, billdomain.ErrSubmissionInFlight, http.StatusConflict, "This bill is already being submitted"},
		{"unknown patient", authorization.RoleAdmin, billdomain.ErrPatientNotFound, http.StatusNotFound, "Selected patient does not exist"},
		{"doctor", authorization.RoleDoctor, nil, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.bills.createErr = tt.err

			rec := ts.do(t, http.MethodPost, "/api/bills", tt.role, map[string]any{"patient_id": "1"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec).Message)
		})
	}
}

func TestCreateBillRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/bills", bytes.NewBufferString("{"))
	req.Header.Set(HeaderActorID, "u1")
	req.Header.Set(HeaderActorRole, string(authorization.RoleAdmin))
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_request", payload.Errors[0].Code)
}

func TestGetBillNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bills/99", authorization.RoleDoctor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestInvoiceRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bills/42/invoice", authorization.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BILL-20240115-00001")

	rec = ts.do(t, http.MethodGet, "/api/bills/42/invoice/pdf", authorization.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-bill-20240115-00001.pdf"`, rec.Header().Get("Content-Disposition"))

	rec = ts.do(t, http.MethodGet, "/api/bills/7/invoice", authorization.RoleDoctor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPatients(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/patients?limit=100&type=IPD", authorization.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, ts.patients.lastReq.Limit)
	assert.Equal(t, "IPD", ts.patients.lastReq.Type)
	assert.Contains(t, rec.Body.String(), "Rahul Sharma")

	rec = ts.do(t, http.MethodGet, "/api/patients?limit=abc", authorization.RoleDoctor, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReferenceRoutesFollowPolicy(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/service-templates", authorization.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Consultation")

	rec = ts.do(t, http.MethodGet, "/api/audit-logs", authorization.RoleReceptionist, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/audit-logs", authorization.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/audit-logs?start_at=yesterday", authorization.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftWorkflow(t *testing.T) {
	ts := newTestServer(t)
	role := authorization.RoleReceptionist

	rec := ts.do(t, http.MethodPost, "/api/bill-drafts", role, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeDraft(t, rec)
	assert.Equal(t, billworkflow.StateEmpty, snap.State)
	assert.True(t, snap.CanCreate)
	assert.Len(t, snap.Patients, 1)
	base := "/api/bill-drafts/" + snap.Key

	// submitting an empty draft keeps it and never reaches the bill service
	rec = ts.do(t, http.MethodPost, base+"/submit", role, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a patient", decodeError(t, rec).Message)
	assert.Empty(t, ts.bills.createReqs)

	rec = ts.do(t, http.MethodPatch, base, role, map[string]any{"patient_id": "1", "discount": 100, "tax": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, update := range []map[string]string{
		{"field": "service_name", "value": "Consultation"},
		{"field": "quantity", "value": "2"},
		{"field": "unit_price", "value": "550"},
	} {
		rec = ts.do(t, http.MethodPatch, base+"/items/0", role, update)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	snap = decodeDraft(t, rec)
	assert.Equal(t, billworkflow.StateEditing, snap.State)
	assert.InDelta(t, 1100.0, snap.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 55.0, snap.Totals.TaxAmount, 1e-9)
	assert.InDelta(t, 1055.0, snap.Totals.TotalAmount, 1e-9)

	rec = ts.do(t, http.MethodPost, base+"/items", role, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decodeDraft(t, rec).Draft.Items, 2)

	rec = ts.do(t, http.MethodDelete, base+"/items/1", role, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeDraft(t, rec).Draft.Items, 1)

	rec = ts.do(t, http.MethodPatch, base+"/items/9", role, map[string]string{"field": "quantity", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/submit", role, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.bills.createReqs, 1)
	assert.NotEmpty(t, ts.bills.createReqs[0].IdempotencyKey)

	var submitted struct {
		Data submitDraftResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, "BILL-20240115-00001", submitted.Data.Bill.BillNumber)
	assert.Equal(t, billworkflow.StateSubmitted, submitted.Data.Draft.State)
	assert.Equal(t, billworkflow.MessageCreated, submitted.Data.Draft.Notice.Message)
	assert.Equal(t, int64(1), submitted.Data.Draft.BillsTotal)
	assert.Empty(t, submitted.Data.Draft.Draft.PatientID)

	rec = ts.do(t, http.MethodDelete, base, role, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, base, role, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftInvalidHeaderUpdate(t *testing.T) {
	ts := newTestServer(t)
	role := authorization.RoleAdmin

	rec := ts.do(t, http.MethodPost, "/api/bill-drafts", role, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/bill-drafts/" + decodeDraft(t, rec).Key

	rec = ts.do(t, http.MethodPatch, base, role, map[string]any{"payment_status": "Refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "payment_status", payload.Errors[0].Field)

	rec = ts.do(t, http.MethodPatch, base, role, map[string]any{"discount": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Discount must be a non-negative number", decodeError(t, rec).Message)
}

func TestDraftHeaderUpdateIsAllOrNothing(t *testing.T) {
	ts := newTestServer(t)
	role := authorization.RoleReceptionist

	rec := ts.do(t, http.MethodPost, "/api/bill-drafts", role, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/bill-drafts/" + decodeDraft(t, rec).Key

	rec = ts.do(t, http.MethodPatch, base, role, map[string]any{"patient_id": "1", "discount": 50, "tax": 250})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tax", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(t, http.MethodGet, base, role, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeDraft(t, rec)
	assert.Equal(t, billworkflow.StateEmpty, snap.State)
	assert.Empty(t, snap.Draft.PatientID)
	assert.Zero(t, snap.Draft.Discount)
	assert.Zero(t, snap.Draft.TaxRate)

	rec = ts.do(t, http.MethodPatch, base, role, map[string]any{"patient_id": "1", "discount": 50, "tax": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeDraft(t, rec)
	assert.Equal(t, "1", snap.Draft.PatientID)
	assert.Equal(t, 50.0, snap.Draft.Discount)
	assert.Equal(t, 5.0, snap.Draft.TaxRate)
}

func TestDraftAccess(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bill-drafts", authorization.RoleDoctor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/bill-drafts", authorization.RoleReceptionist, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decodeDraft(t, rec).Key

	// another actor cannot see the draft
	rec = ts.do(t, http.MethodGet, "/api/bill-drafts/"+key, authorization.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/bill-drafts/not-a-key", authorization.RoleReceptionist, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(billdomain.ErrNoCompleteItems)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "no_complete_items", code)

	typ, code = classifyErrorForLog(newValidationError("limit", "invalid_limit", "invalid limit"))
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_limit", code)

	typ, _ = classifyErrorForLog(context.DeadlineExceeded)
	assert.Equal(t, "internal_error", typ)

}
