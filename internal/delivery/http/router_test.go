package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	deliveryHttp "clinic-calendar/internal/delivery/http"
	"clinic-calendar/internal/delivery/http/handler"
	"clinic-calendar/internal/delivery/http/middleware"
	"clinic-calendar/internal/domain/entity"
	"clinic-calendar/internal/repository"
	"clinic-calendar/internal/seed"
	"clinic-calendar/internal/service"
	"clinic-calendar/internal/usecase"
	"clinic-calendar/pkg/validator"

	"github.com/sirupsen/logrus"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

type appointmentBody struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Patient string    `json:"patient"`
	Doctor  string    `json:"doctor"`
}

func newServer(t *testing.T, rps float64, burst int, load bool) http.Handler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := usecase.NewAppointmentStore(
		log,
		repository.NewMemoryBlobRepository(),
		service.NewExportService(log, time.UTC),
		validator.NewValidator(),
		seed.Default(time.UTC),
		usecase.AppointmentStoreConfig{Key: "appointments", Location: time.UTC, FilterMode: entity.FilterModeTitle},
	)
	if load {
		if err := store.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}

	rateLimit := middleware.NewRateLimitMiddleware(rps, burst)
	t.Cleanup(rateLimit.Stop)

	router := deliveryHttp.NewRouter(
		handler.NewAppointmentHandler(store),
		handler.NewExportHandler(store, log),
		rateLimit,
		middleware.NewCORSMiddleware(nil),
	)
	return router.Setup()
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && !strings.Contains(target, "/export/") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %s: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func aliceBody() map[string]string {
	return map[string]string{"patient": "Alice", "doctor": "Dr. Smith", "date": "2025-06-01", "time": "09:00"}
}

func TestHealthCheck(t *testing.T) {
	h := newServer(t, 100, 100, true)
	w, _ := do(t, h, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestCreateAndGetAppointment(t *testing.T) {
	h := newServer(t, 100, 100, true)

	w, env := do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created appointmentBody
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.Title != "Alice with Dr. Smith" {
		t.Errorf("Unexpected title %q", created.Title)
	}

	w, env = do(t, h, http.MethodGet, "/api/v1/appointments/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got appointmentBody
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID || !got.Start.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected appointment %+v", got)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	h := newServer(t, 100, 100, true)

	w, env := do(t, h, http.MethodPost, "/api/v1/appointments", map[string]string{"patient": "Alice"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	for _, field := range []string{"doctor", "date", "time"} {
		if env.Error[field] == "" {
			t.Errorf("Expected error for %q, got %v", field, env.Error)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestQueryAppointments(t *testing.T) {
	h := newServer(t, 100, 100, true)

	w, env := do(t, h, http.MethodGet, "/api/v1/appointments?search=ALICE", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var list struct {
		Appointments []appointmentBody `json:"appointments"`
		Total        int               `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total == 0 || list.Total != len(list.Appointments) {
		t.Fatalf("Unexpected list %+v", list)
	}
	for _, a := range list.Appointments {
		if !strings.Contains(strings.ToLower(a.Title), "alice") {
			t.Errorf("Unexpected match %q", a.Title)
		}
	}
}

func TestUpdateAndDeleteByID(t *testing.T) {
	h := newServer(t, 100, 100, true)

	_, env := do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())
	var created appointmentBody
	json.Unmarshal(env.Data, &created)

	update := map[string]string{"patient": "Bob", "doctor": "Dr. Lee", "date": "2025-06-02", "time": "10:00"}
	w, env := do(t, h, http.MethodPut, "/api/v1/appointments/"+created.ID, update)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated appointmentBody
	json.Unmarshal(env.Data, &updated)
	if updated.ID != created.ID || updated.Title != "Bob with Dr. Lee" {
		t.Errorf("Unexpected update result %+v", updated)
	}

	w, _ = do(t, h, http.MethodDelete, "/api/v1/appointments/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodDelete, "/api/v1/appointments/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodGet, "/api/v1/appointments/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", w.Code)
	}
}

func TestMatchRoutes(t *testing.T) {
	h := newServer(t, 100, 100, true)

	do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())
	do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	body := map[string]interface{}{
		"target":      map[string]interface{}{"start": start, "title": "Alice with Dr. Smith"},
		"appointment": map[string]string{"patient": "Alice", "doctor": "Dr. Lee", "date": "2025-06-01", "time": "09:00"},
	}
	w, _ := do(t, h, http.MethodPut, "/api/v1/appointments/match", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("title", "Alice with Dr. Smith")
	w, env := do(t, h, http.MethodDelete, "/api/v1/appointments/match?"+q.Encode(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var deleted struct {
		Deleted int `json:"deleted"`
	}
	json.Unmarshal(env.Data, &deleted)
	if deleted.Deleted != 1 {
		t.Errorf("Expected the remaining duplicate to be deleted, got %d", deleted.Deleted)
	}

	w, _ = do(t, h, http.MethodDelete, "/api/v1/appointments/match?"+q.Encode(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w, _ = do(t, h, http.MethodDelete, "/api/v1/appointments/match?start=yesterday&title=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad start, got %d", w.Code)
	}
}

func TestRosters(t *testing.T) {
	h := newServer(t, 100, 100, true)
	w, env := do(t, h, http.MethodGet, "/api/v1/rosters", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var rosters struct {
		Patients []string `json:"patients"`
		Doctors  []string `json:"doctors"`
	}
	json.Unmarshal(env.Data, &rosters)
	if len(rosters.Patients) == 0 || len(rosters.Doctors) == 0 {
		t.Errorf("Expected rosters, got %+v", rosters)
	}
}

func TestExports(t *testing.T) {
	h := newServer(t, 100, 100, true)

	tests := []struct {
		file        string
		contentType string
		prefix      string
	}{
		{"appointments.json", "application/json", `{"version":1`},
		{"appointments.pdf", "application/pdf", "%PDF-"},
		{"appointments.ics", "text/calendar", "BEGIN:VCALENDAR"},
		{"appointments.xlsx", "application/vnd.openxmlformats", "PK"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			w, _ := do(t, h, http.MethodGet, "/api/v1/export/"+tt.file, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			if !strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Expected content type %s, got %s", tt.contentType, w.Header().Get("Content-Type"))
			}
			if !strings.Contains(w.Header().Get("Content-Disposition"), tt.file) {
				t.Errorf("Expected attachment filename %s, got %s", tt.file, w.Header().Get("Content-Disposition"))
			}
			if !strings.HasPrefix(w.Body.String(), tt.prefix) {
				t.Errorf("Expected body to start with %q", tt.prefix)
			}
		})
	}
}

func TestStoreNotLoaded(t *testing.T) {
	h := newServer(t, 100, 100, false)

	w, _ := do(t, h, http.MethodGet, "/api/v1/appointments", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodGet, "/api/v1/rosters", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for rosters, got %d", w.Code)
	}
	w, _ = do(t, h, http.MethodGet, "/api/v1/export/appointments.pdf", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for export, got %d", w.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	h := newServer(t, 0.001, 2, true)

	for i := 0; i < 2; i++ {
		w, _ := do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())
		if w.Code != http.StatusCreated {
			t.Fatalf("Request %d: expected 201, got %d", i, w.Code)
		}
	}
	w, _ := do(t, h, http.MethodPost, "/api/v1/appointments", aliceBody())
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once the burst is spent, got %d", w.Code)
	}

	// reads are never limited
	w, _ = do(t, h, http.MethodGet, "/api/v1/appointments", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected reads to pass, got %d", w.Code)
	}
}
