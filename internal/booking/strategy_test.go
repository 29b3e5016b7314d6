package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/scheduling"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

const (
	primaryPath  = "/api/v1/client/bookings"
	fallbackPath = "/api/v1/companies/org-1/bookings"
)

// providerStub answers the booking endpoints with canned responses and
// records the decoded bodies.
type providerStub struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	bodies    map[string]map[string]any
	calls     []string
}

type stubResponse struct {
	status int
	body   string
}

func newProviderStub(t *testing.T, responses map[string]stubResponse) (*providerStub, *scheduling.Client) {
	t.Helper()
	stub := &providerStub{responses: responses, bodies: map[string]map[string]any{}}
	ts := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(ts.Close)
	return stub, scheduling.NewClient(ts.URL, "org-1", "key", logging.Discard())
}

func (p *providerStub) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	p.mu.Lock()
	p.calls = append(p.calls, r.URL.Path)
	p.bodies[r.URL.Path] = body
	resp, ok := p.responses[r.URL.Path]
	p.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (p *providerStub) callPaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *providerStub) body(path string) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bodies[path]
}

type submissionRecorderStub struct {
	observed []string
}

func (s *submissionRecorderStub) ObserveSubmission(api, outcome string, _ float64) {
	s.observed = append(s.observed, api+":"+outcome)
}

func testSlot() availability.TimeSlot {
	return availability.TimeSlot{
		Start:      time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC),
		ResourceID: "res-9",
	}
}

func testService(t *testing.T, w *config.Widget) config.Service {
	t.Helper()
	svc, ok := w.Service("svc-1")
	require.True(t, ok)
	return svc
}

func TestStrategyPrimarySuccess(t *testing.T) {
	stub, client := newProviderStub(t, map[string]stubResponse{
		primaryPath: {http.StatusCreated, `{"booking":{"id":"bk-1","status":"confirmed","paymentUrl":"https://pay.example/bk-1"}}`},
	})
	w := testWidget(t)
	rec := &submissionRecorderStub{}
	strategy := NewStrategy(client, w, logging.Discard(), WithSubmissionRecorder(rec))

	res, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	require.NoError(t, err)
	assert.Equal(t, APIPrimary, res.APIUsed)
	assert.Equal(t, "bk-1", res.BookingID)
	assert.Equal(t, "confirmed", res.Status)
	assert.Equal(t, "https://pay.example/bk-1", res.PaymentURL)
	assert.NotEmpty(t, res.AttemptID)
	assert.Equal(t, []string{primaryPath}, stub.callPaths())
	assert.Equal(t, []string{"primary:ok"}, rec.observed)

	body := stub.body(primaryPath)
	assert.Equal(t, "org-1", body["companyID"])
	assert.Equal(t, "svc-1", body["serviceID"])
	assert.Equal(t, "res-9", body["resourceID"])
	assert.Equal(t, "2026-10-20T10:00:00Z", body["startTime"])
	assert.EqualValues(t, 1, body["spots"])

	clientBlock := body["client"].(map[string]any)
	assert.Equal(t, "ada@example.com", clientBlock["email"])
	assert.Equal(t, "Ada", clientBlock["firstName"])
	assert.Equal(t, "+34 600 000 000", clientBlock["phone"])
	assert.NotContains(t, clientBlock, "company", "blank optional fields are not sent")
	assert.NotContains(t, clientBlock, "city", "hidden fields are not sent")

	meta := body["metaData"].(map[string]any)
	assert.Equal(t, "45.00", meta["totalPrice"])
	assert.Equal(t, "true", meta["accepted_terms"])
	assert.Equal(t, "false", meta["accepted_newsletter"])
	assert.Equal(t, res.AttemptID, meta["attemptId"])
}

func TestStrategyOmitsHiddenContactFields(t *testing.T) {
	stub, client := newProviderStub(t, map[string]stubResponse{
		primaryPath: {http.StatusCreated, `{"id":"bk-2"}`},
	})
	w := testWidget(t)
	w.FormFields[config.FieldLastName] = config.Field{Visible: false}
	strategy := NewStrategy(client, w, logging.Discard())

	_, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	require.NoError(t, err)

	clientBlock := stub.body(primaryPath)["client"].(map[string]any)
	assert.NotContains(t, clientBlock, "lastName")
	assert.Equal(t, "ada@example.com", clientBlock["email"])
	assert.Equal(t, "Ada", clientBlock["firstName"])
}

func TestStrategyFallsBackOnPrimaryFailure(t *testing.T) {
	stub, client := newProviderStub(t, map[string]stubResponse{
		primaryPath:  {http.StatusUnauthorized, `{"error":"client bookings disabled"}`},
		fallbackPath: {http.StatusOK, `{"id":77,"paymentUrl":"https://pay.example/77"}`},
	})
	w := testWidget(t)
	rec := &submissionRecorderStub{}
	strategy := NewStrategy(client, w, logging.Discard(), WithSubmissionRecorder(rec))

	res, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	require.NoError(t, err)
	assert.Equal(t, APIFallback, res.APIUsed)
	assert.Equal(t, "77", res.BookingID)
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, []string{primaryPath, fallbackPath}, stub.callPaths())
	assert.Equal(t, []string{"primary:error", "fallback:ok"}, rec.observed)

	body := stub.body(fallbackPath)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, true, body["requirePayment"])
	assert.Equal(t, "2026-10-20T10:30:00Z", body["endTime"], "end derived from the 30 min duration")
	assert.Contains(t, body, "metadata")
	assert.NotContains(t, body, "metaData")
	clientBlock := body["client"].(map[string]any)
	assert.Equal(t, "ada@example.com", clientBlock["email"])
}

func TestStrategyBothFail(t *testing.T) {
	stub, client := newProviderStub(t, map[string]stubResponse{
		primaryPath:  {http.StatusInternalServerError, `oops`},
		fallbackPath: {http.StatusConflict, `{"error":"slot taken"}`},
	})
	w := testWidget(t)
	strategy := NewStrategy(client, w, logging.Discard())

	_, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusConflict, subErr.Status)
	assert.Contains(t, subErr.Body, "slot taken")
	assert.Len(t, stub.callPaths(), 2, "no automatic retries")
}

func TestStrategyNetworkErrorTriggersFallback(t *testing.T) {
	w := testWidget(t)
	api := &fakeBookingAPI{
		primaryErr: errors.New("dial tcp: connection refused"),
		fallback:   []byte(`{"data":{"id":"d-1"}}`),
	}
	strategy := NewStrategy(api, w, logging.Discard())
	res, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	require.NoError(t, err)
	assert.Equal(t, APIFallback, res.APIUsed)
	assert.Equal(t, "d-1", res.BookingID)
	assert.Equal(t, 1, api.primaryCalls)
}

func TestStrategyBothNetworkErrors(t *testing.T) {
	w := testWidget(t)
	api := &fakeBookingAPI{
		primaryErr:  errors.New("timeout"),
		fallbackErr: errors.New("timeout again"),
	}
	strategy := NewStrategy(api, w, logging.Discard())
	_, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 0, subErr.Status)
	assert.Contains(t, err.Error(), "timeout again")
}

func TestStrategyHidesPriceWhenDisabled(t *testing.T) {
	w := testWidget(t)
	hide := false
	w.ShowPrices = &hide
	api := &fakeBookingAPI{primary: []byte(`{}`)}
	strategy := NewStrategy(api, w, logging.Discard())

	res, err := strategy.Submit(context.Background(), testService(t, w), testSlot(), filledCustomer())
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.Status)
	assert.Equal(t, "0", api.lastPrimary.MetaData["totalPrice"])
	assert.NotContains(t, api.lastPrimary.MetaData, "currency")
}

func TestEndTime(t *testing.T) {
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	withEnd := availability.TimeSlot{Start: start, End: start.Add(45 * time.Minute)}
	assert.Equal(t, "2026-10-20T10:45:00Z", endTime(withEnd, config.Service{Duration: "30 min"}))

	bare := availability.TimeSlot{Start: start}
	assert.Equal(t, "2026-10-20T11:30:00Z", endTime(bare, config.Service{Duration: "1h30m"}))
	assert.Equal(t, "2026-10-20T10:20:00Z", endTime(bare, config.Service{Duration: "20"}))
	assert.Equal(t, "", endTime(bare, config.Service{Duration: "about an hour"}))
	assert.Equal(t, "", endTime(bare, config.Service{}))
}

type fakeBookingAPI struct {
	primary, fallback       []byte
	primaryErr, fallbackErr error
	primaryCalls            int
	fallbackCalls           int
	lastPrimary             scheduling.ClientBookingRequest
	lastFallback            scheduling.MerchantBookingRequest
}

func (f *fakeBookingAPI) OrganizationID() string { return "org-1" }

func (f *fakeBookingAPI) CreateClientBooking(_ context.Context, req scheduling.ClientBookingRequest) ([]byte, error) {
	f.primaryCalls++
	f.lastPrimary = req
	return f.primary, f.primaryErr
}

func (f *fakeBookingAPI) CreateMerchantBooking(_ context.Context, req scheduling.MerchantBookingRequest) ([]byte, error) {
	f.fallbackCalls++
	f.lastFallback = req
	return f.fallback, f.fallbackErr
}
