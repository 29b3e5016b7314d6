package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/scheduling"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

const testWidgetJSON = `{
  "services": [
    {"id": "svc-1", "enabled": true, "name": "Consultation", "duration": "30 min", "basePrice": 40, "apaPrice": 5},
    {"id": "svc-2", "enabled": true, "name": "Therapy", "duration": "60"}
  ],
  "redirectDelay": "2s"
}`

const timesBody = `{"times": {
  "r1": [{"startTime": "2026-10-20T14:00:00Z"}, {"startTime": "2026-10-20T08:00:00Z"}],
  "r2": [{"startTime": "2026-10-20T10:00:00Z", "endTime": "2026-10-20T10:30:00Z"}]
}}`

// fakeProvider serves the times and booking endpoints for org-1.
type fakeProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	timesFail bool
	primary   int
}

func (p *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.calls[r.URL.Path]++
	timesFail, primary := p.timesFail, p.primary
	p.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/times"):
		if timesFail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(timesBody))
	case r.URL.Path == "/api/v1/client/bookings":
		w.WriteHeader(primary)
		_, _ = w.Write([]byte(`{"error":"client booking disabled"}`))
	case r.URL.Path == "/api/v1/companies/org-1/bookings":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"booking":{"id":"bk-9","status":"pending","paymentUrl":"https://pay.example/9"}}`))
	default:
		http.NotFound(w, r)
	}
}

func (p *fakeProvider) bookingCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls["/api/v1/client/bookings"] + p.calls["/api/v1/companies/org-1/bookings"]
}

type testServer struct {
	provider *fakeProvider
	sessions *Sessions
	router   http.Handler
}

func newTestServer(t *testing.T, source config.Source) *testServer {
	t.Helper()
	provider := &fakeProvider{calls: map[string]int{}, primary: http.StatusForbidden}
	ts := httptest.NewServer(http.HandlerFunc(provider.serve))
	t.Cleanup(ts.Close)

	if source == nil {
		w, err := config.ParseWidget([]byte(testWidgetJSON))
		require.NoError(t, err)
		source = config.StaticSource{Config: w}
	}
	deps := Dependencies{
		Provider: scheduling.NewClient(ts.URL, "org-1", "key", logging.Discard()),
		Location: time.UTC,
		LogLevel: "error",
		Clock:    func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC) },
	}
	sessions := NewSessions(time.Hour, nil)
	r := chi.NewRouter()
	r.Mount("/sessions", NewHandler(source, deps.NewFlow, sessions, logging.Discard()).Routes())
	return &testServer{provider: provider, sessions: sessions, router: r}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, View) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	var v View
	if strings.Contains(rec.Body.String(), `"sessionId"`) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	}
	return rec.Code, v
}

func (s *testServer) create(t *testing.T) View {
	t.Helper()
	code, v := s.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, v.SessionID)
	return v
}

func TestBookingThroughFallback(t *testing.T) {
	srv := newTestServer(t, nil)
	v := srv.create(t)
	base := "/sessions/" + v.SessionID

	assert.Equal(t, "browsing", v.State)
	assert.Equal(t, "October 2026", v.Title)
	assert.Equal(t, "Mon", v.Weekdays[0])
	require.Len(t, v.Cells, 34)
	assert.True(t, v.Cells[0].Padding)
	day20 := v.Cells[3+19]
	assert.Equal(t, "2026-10-20", day20.Date)
	assert.True(t, day20.Selectable)
	require.Len(t, v.Services, 2)
	require.NotNil(t, v.Services[0].Price)
	assert.InDelta(t, 45.0, *v.Services[0].Price, 0.001)

	code, v := srv.do(t, http.MethodPost, base+"/date", map[string]string{"date": "2026-10-20"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "date_selected", v.State)
	require.Len(t, v.Periods, 2)
	assert.Equal(t, "morning", v.Periods[0].Period)
	assert.Equal(t, []string{"08:00", "10:00"}, []string{v.Periods[0].Slots[0].Label, v.Periods[0].Slots[1].Label})
	assert.Equal(t, "afternoon", v.Periods[1].Period)

	slot := v.Periods[0].Slots[1]
	code, v = srv.do(t, http.MethodPost, base+"/slot", slot)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "time_selected", v.State)
	require.NotNil(t, v.SelectedSlot)
	assert.Equal(t, "r2", v.SelectedSlot.ResourceID)

	code, v = srv.do(t, http.MethodPost, base+"/form", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "form_open", v.State)
	assert.True(t, v.ScrollLocked)
	require.NotNil(t, v.Form)

	code, v = srv.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, v.Error)
	assert.Equal(t, "validation", v.Error.Kind)
	assert.Equal(t, "form_open", v.State)
	assert.Zero(t, srv.provider.bookingCalls())

	code, _ = srv.do(t, http.MethodPatch, base+"/form", map[string]any{
		"fields":     map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
		"checkboxes": map[string]bool{"terms": true, "privacy": true},
	})
	require.Equal(t, http.StatusOK, code)

	code, v = srv.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", v.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, "bk-9", v.Result.BookingID)
	assert.Equal(t, "fallback", v.Result.APIUsed)
	require.NotNil(t, v.Redirect)
	assert.Equal(t, int64(2000), v.Redirect.DelayMs)
	assert.Empty(t, v.SelectedDate)
	assert.Nil(t, v.Error)
	assert.Equal(t, 2, srv.provider.bookingCalls())

	code, v = srv.do(t, http.MethodPost, base+"/dismiss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "browsing", v.State)
	assert.False(t, v.ScrollLocked)
	assert.Nil(t, v.Result)
}

func TestEventErrorsMapToStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	base := "/sessions/" + srv.create(t).SessionID

	code, v := srv.do(t, http.MethodPost, base+"/slot", map[string]string{"startTime": "2026-10-20T08:00:00Z", "resourceId": "r1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "transition", v.Error.Kind)

	code, _ = srv.do(t, http.MethodPost, base+"/date", map[string]string{"date": "20/10/2026"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = srv.do(t, http.MethodPost, base+"/date", map[string]string{"date": "2026-10-21"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = srv.do(t, http.MethodPost, base+"/service", map[string]string{"serviceId": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/navigate", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, _ = srv.do(t, http.MethodGet, "/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServiceSwitchAndNavigation(t *testing.T) {
	srv := newTestServer(t, nil)
	base := "/sessions/" + srv.create(t).SessionID

	code, v := srv.do(t, http.MethodPost, base+"/service", map[string]string{"serviceId": "svc-2"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "svc-2", v.ServiceID)
	assert.Equal(t, 1, srv.provider.calls["/api/v1/companies/org-1/services/svc-2/times"])

	code, v = srv.do(t, http.MethodPost, base+"/navigate", map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-11-01", v.Anchor)
	assert.Equal(t, "November 2026", v.Title)

	calls := srv.provider.calls["/api/v1/companies/org-1/services/svc-2/times"]
	code, v = srv.do(t, http.MethodPost, base+"/navigate", map[string]int64{"delta": 1 << 40})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "request", v.Error.Kind)
	assert.Equal(t, "2026-11-01", v.Anchor)
	assert.Equal(t, calls, srv.provider.calls["/api/v1/companies/org-1/services/svc-2/times"])

	code, v = srv.do(t, http.MethodPost, base+"/navigate", map[string]int{"delta": -1})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-10-01", v.Anchor)
}

func TestFetchFailureKeepsSessionUsable(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.provider.timesFail = true

	v := srv.create(t)
	require.NotNil(t, v.Error)
	assert.Equal(t, "availability", v.Error.Kind)
	base := "/sessions/" + v.SessionID

	code, _ := srv.do(t, http.MethodPost, base+"/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, code)

	srv.provider.mu.Lock()
	srv.provider.timesFail = false
	srv.provider.mu.Unlock()
	code, v = srv.do(t, http.MethodPost, base+"/refresh", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, v.Error)
	assert.True(t, v.Cells[3+19].Selectable)
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, nil)
	id := srv.create(t).SessionID
	assert.Equal(t, 1, srv.sessions.Len())

	code, _ := srv.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = srv.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

type failingSource struct{}

func (failingSource) Widget(context.Context) (*config.Widget, error) {
	return nil, errors.New("redis down")
}

func TestCreateSessionErrors(t *testing.T) {
	srv := newTestServer(t, failingSource{})
	code, _ := srv.do(t, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	w, err := config.ParseWidget([]byte(`{"services":[{"id":"a","name":"A"}]}`))
	require.NoError(t, err)
	srv = newTestServer(t, config.StaticSource{Config: w})
	code, _ = srv.do(t, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Zero(t, srv.sessions.Len())
}
