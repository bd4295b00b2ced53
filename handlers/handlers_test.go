package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	invoiceRepo "consultbook/database/repository/invoice"
	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/models"
	"consultbook/services/billing"
	"consultbook/services/booking"
	"consultbook/services/subscription"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAppointments struct {
	booking.AppointmentService
	lastTransition booking.TransitionRequest
	bookErr        error
	appt           *models.Appointment
}

func (s *stubAppointments) BookAppointment(_ context.Context, req booking.BookingRequest) (*models.Appointment, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return &models.Appointment{ID: "a1", UserID: req.UserID, Date: req.Date, Timeslot: req.Timeslot, Type: req.Type, Status: models.AppointmentPending}, nil
}

func (s *stubAppointments) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	if s.appt == nil || s.appt.ID != id {
		return nil, utils.NewEngineError(utils.ErrNotFound, "appointment %s not found", id)
	}
	return s.appt, nil
}

func (s *stubAppointments) TransitionAppointment(_ context.Context, req booking.TransitionRequest) (*models.Appointment, error) {
	s.lastTransition = req
	if req.NewStatus == "bogus" {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "invalid status")
	}
	return &models.Appointment{ID: req.AppointmentID, Status: req.NewStatus}, nil
}

func (s *stubAppointments) ListAppointments(_ context.Context, f schedulerRepo.AppointmentFilter) ([]models.Appointment, error) {
	return []models.Appointment{{ID: "a1", UserID: f.UserID}}, nil
}

type stubPlans struct {
	subscription.SubscriptionService
	lastReq subscription.UpdatePlanRequest
	err     error
}

func (s *stubPlans) UpdateServicePlan(_ context.Context, req subscription.UpdatePlanRequest) (*subscription.PlanView, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &subscription.PlanView{UserID: req.UserID, EffectivePlan: req.RequestedPlan, Version: 4}, nil
}

type stubBilling struct {
	billing.BillingService
	confirmed []string
	err       error
}

func (s *stubBilling) ConfirmPayment(_ context.Context, id string) (*models.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.confirmed = append(s.confirmed, id)
	return &models.Invoice{ID: id, Status: models.InvoicePaid}, nil
}

func (s *stubBilling) ListInvoices(_ context.Context, f invoiceRepo.InvoiceFilter) ([]models.Invoice, error) {
	return []models.Invoice{{ID: "i1", AppointmentID: f.AppointmentID, IsActive: !f.IncludeInactive}}, nil
}

// serve runs one request against h with the user id preset in the context.
func serve(method, path, route, body string, h gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		c.Set("userID", "user-1")
		h(c)
	})
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookAppointmentHandler(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointments{})
	w := serve(http.MethodPost, "/appointments", "/appointments",
		`{"date":"2030-01-15","timeslot":"10:00","type":"Initial"}`, h.BookAppointmentHandler, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var appt models.Appointment
	if err := json.Unmarshal(w.Body.Bytes(), &appt); err != nil {
		t.Fatal(err)
	}
	if appt.UserID != "user-1" || appt.Status != models.AppointmentPending {
		t.Errorf("unexpected appointment %+v", appt)
	}

	if w := serve(http.MethodPost, "/appointments", "/appointments", `{"date":"2030-01-15"}`, h.BookAppointmentHandler, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d", w.Code)
	}

	conflict := NewAppointmentHandler(&stubAppointments{bookErr: utils.NewEngineError(utils.ErrSlotConflict, "slot is booked")})
	w = serve(http.MethodPost, "/appointments", "/appointments",
		`{"date":"2030-01-15","timeslot":"10:00","type":"Initial"}`, conflict.BookAppointmentHandler, nil)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), `"code":"SlotConflict"`) {
		t.Errorf("conflict: %d %s", w.Code, w.Body.String())
	}
}

func TestGetMyAppointmentHidesOtherUsers(t *testing.T) {
	stub := &stubAppointments{appt: &models.Appointment{ID: "a9", UserID: "someone-else"}}
	h := NewAppointmentHandler(stub)
	if w := serve(http.MethodGet, "/appointments/a9", "/appointments/:id", "", h.GetMyAppointmentHandler, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	stub.appt.UserID = "user-1"
	if w := serve(http.MethodGet, "/appointments/a9", "/appointments/:id", "", h.GetMyAppointmentHandler, nil); w.Code != http.StatusOK {
		t.Errorf("owner status = %d", w.Code)
	}
}

func TestTransitionHandlersSetActor(t *testing.T) {
	stub := &stubAppointments{}
	h := NewAppointmentHandler(stub)

	w := serve(http.MethodPost, "/appointments/a1/reschedule", "/appointments/:id/reschedule", "", h.RequestRescheduleHandler, nil)
	if w.Code != http.StatusOK || stub.lastTransition.Admin || stub.lastTransition.ActorUserID != "user-1" ||
		stub.lastTransition.NewStatus != models.AppointmentRescheduleRequested {
		t.Errorf("client reschedule: %d %+v", w.Code, stub.lastTransition)
	}

	w = serve(http.MethodPatch, "/admin/appointments/a1/status", "/admin/appointments/:id/status",
		`{"status":"confirmed","date":"2030-02-01","timeslot":"09:00"}`, h.AdminUpdateStatusHandler, nil)
	if w.Code != http.StatusOK || !stub.lastTransition.Admin || stub.lastTransition.Date != "2030-02-01" {
		t.Errorf("admin confirm: %d %+v", w.Code, stub.lastTransition)
	}

	w = serve(http.MethodPatch, "/admin/appointments/a1/status", "/admin/appointments/:id/status",
		`{"status":"bogus"}`, h.AdminUpdateStatusHandler, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus status: %d", w.Code)
	}
}

func TestUpdatePlanHandlerIfMatch(t *testing.T) {
	stub := &stubPlans{}
	h := NewSubscriptionHandler(stub)

	w := serve(http.MethodPut, "/plan", "/plan", `{"servicePlan":"complete-program","confirm":true}`, h.UpdateMyPlanHandler,
		map[string]string{"If-Match": `"3"`})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if stub.lastReq.ExpectedVersion == nil || *stub.lastReq.ExpectedVersion != 3 || !stub.lastReq.Confirm || stub.lastReq.UserID != "user-1" {
		t.Errorf("unexpected request %+v", stub.lastReq)
	}
	if etag := w.Header().Get("ETag"); etag != `"4"` {
		t.Errorf("ETag = %s", etag)
	}

	w = serve(http.MethodPut, "/plan", "/plan", `{"servicePlan":"complete-program"}`, h.UpdateMyPlanHandler,
		map[string]string{"If-Match": "abc"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad If-Match: %d", w.Code)
	}

	stub.err = utils.NewEngineError(utils.ErrStaleSubscriptionWrite, "stale")
	w = serve(http.MethodPut, "/plan", "/plan", `{"servicePlan":"pay-as-you-go"}`, h.UpdateMyPlanHandler, nil)
	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("stale: %d", w.Code)
	}
	stub.err = utils.NewEngineError(utils.ErrConfirmationRequired, "confirm")
	w = serve(http.MethodPut, "/plan", "/plan", `{"servicePlan":"complete-program"}`, h.UpdateMyPlanHandler, nil)
	if w.Code != http.StatusPreconditionRequired {
		t.Errorf("confirmation: %d", w.Code)
	}
}

func TestAdminUpdatePlanUsesPathUser(t *testing.T) {
	stub := &stubPlans{}
	h := NewSubscriptionHandler(stub)
	w := serve(http.MethodPut, "/admin/users/u-77/plan", "/admin/users/:uid/plan", `{"servicePlan":"pay-as-you-go"}`, h.AdminUpdatePlanHandler, nil)
	if w.Code != http.StatusOK || stub.lastReq.UserID != "u-77" || stub.lastReq.ExpectedVersion != nil {
		t.Errorf("%d %+v", w.Code, stub.lastReq)
	}
}

func TestListInvoicesIncludeInactive(t *testing.T) {
	h := NewInvoiceHandler(&stubBilling{})
	w := serve(http.MethodGet, "/admin/invoices?appointmentId=a1&includeInactive=true", "/admin/invoices", "", h.ListInvoicesHandler, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"isActive":false`) {
		t.Errorf("%d %s", w.Code, w.Body.String())
	}
}

const webhookSecret = "whsec_test"

func signedWebhook(payload string, secret string) map[string]string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return map[string]string{"Stripe-Signature": fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))}
}

func paymentEvent(invoiceID string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"invoice_id":%q}}}}`, invoiceID)
}

func TestStripeWebhookConfirmsPayment(t *testing.T) {
	stub := &stubBilling{}
	h := NewPaymentHandler(stub, webhookSecret)

	body := paymentEvent("inv-1")
	w := serve(http.MethodPost, "/webhook", "/webhook", body, h.StripeWebhookHandler, signedWebhook(body, webhookSecret))
	if w.Code != http.StatusOK || len(stub.confirmed) != 1 || stub.confirmed[0] != "inv-1" {
		t.Fatalf("%d %s confirmed=%v", w.Code, w.Body.String(), stub.confirmed)
	}

	w = serve(http.MethodPost, "/webhook", "/webhook", body, h.StripeWebhookHandler, signedWebhook(body, "whsec_wrong"))
	if w.Code != http.StatusBadRequest || len(stub.confirmed) != 1 {
		t.Errorf("forged signature: %d", w.Code)
	}
}

func TestStripeWebhookRetriesOnlyStorageFailures(t *testing.T) {
	body := paymentEvent("inv-2")

	stub := &stubBilling{err: utils.NewEngineError(utils.ErrStorageUnavailable, "down")}
	w := serve(http.MethodPost, "/webhook", "/webhook", body, NewPaymentHandler(stub, webhookSecret).StripeWebhookHandler, signedWebhook(body, webhookSecret))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("storage failure: %d", w.Code)
	}

	stub = &stubBilling{err: utils.NewEngineError(utils.ErrInvoiceSuperseded, "superseded")}
	w = serve(http.MethodPost, "/webhook", "/webhook", body, NewPaymentHandler(stub, webhookSecret).StripeWebhookHandler, signedWebhook(body, webhookSecret))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"applied":false`) {
		t.Errorf("superseded: %d %s", w.Code, w.Body.String())
	}

	other := `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{}}}`
	w = serve(http.MethodPost, "/webhook", "/webhook", other, NewPaymentHandler(&stubBilling{}, webhookSecret).StripeWebhookHandler, signedWebhook(other, webhookSecret))
	if w.Code != http.StatusOK {
		t.Errorf("ignored event: %d", w.Code)
	}
}
