package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage/memory"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()
	store := memory.New()
	deps := Deps{
		Definitions:        services.NewDefinitionService(store, nil, nil),
		Tasks:              services.NewTaskService(store),
		Generator:          services.NewGenerator(store, nil, 2),
		JWTSecret:          testSecret,
		RateLimitPerMinute: 1000,
		Logger: applog.New(applog.Config{
			Handler: slog.NewTextHandler(io.Discard, nil),
		}),
	}
	if mutate != nil {
		mutate(&deps)
	}
	s := NewServer(":0", deps)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func today() string { return time.Now().UTC().Format("2006-01-02") }

func outcomeBody() map[string]any {
	return map[string]any{
		"name":           "Internet",
		"amount":         "1500.50",
		"type":           "1",
		"frequency":      "2",
		"payment_method": "0",
		"start_date":     today(),
		"category":       "1",
		"cuotas":         "1",
		"status":         "0",
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong secret", func() string {
			tok, _ := IssueToken("other-secret", 1, time.Hour)
			return tok
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/incomes", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthenticated.", decode[messageResponse](t, rec).Message)
		})
	}
}

func TestCreateDefinitionValidation(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	rec := do(t, s, http.MethodPost, "/api/outcomes", tok, map[string]any{"amount": "abc", "start_date": "14/10/2026"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decode[validationResponse](t, rec).Errors
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "category")
	assert.Equal(t, []string{"The amount field must be a number."}, errs["amount"])
	assert.Equal(t, []string{"The start date field must match the format Y-m-d."}, errs["start_date"])
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/incomes", tokenFor(t, 1), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	for _, path := range []string{"/api/incomes/abc", "/api/incomes/0", "/api/outcomes/42", "/api/projects/7/tasks"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, path, tok, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestIncomeLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	body := map[string]any{
		"name":           "Salario",
		"amount":         50000,
		"type":           "1",
		"frequency":      "2",
		"payment_method": "1",
		"start_date":     time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
	}
	rec := do(t, s, http.MethodPost, "/api/incomes", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]any](t, rec)
	id := int64(created["id"].(float64))
	item := created["item"].(map[string]any)
	assert.Equal(t, "1", item["status"], "past-dated income starts finished")
	assert.Equal(t, 50000.0, created["amount"])

	body["type"] = "0"
	body["name"] = "Bono"
	rec = do(t, s, http.MethodPost, "/api/incomes", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/incomes", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[incomeListResponse](t, rec)
	require.Len(t, list.Dynamic, 1)
	require.Len(t, list.Fixed, 1)
	assert.Equal(t, "Salario", list.Dynamic[0].Name)
	assert.Equal(t, "Bono", list.Fixed[0].Name)

	rec = do(t, s, http.MethodGet, "/api/incomes/"+itoa(id)+"/items", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]itemResponse](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/incomes/"+itoa(id), tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/incomes/"+itoa(id), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDefinitionsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/outcomes", tokenFor(t, 1), outcomeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decode[map[string]any](t, rec)["id"].(float64))

	other := tokenFor(t, 2)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/outcomes/"+itoa(id), other, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/outcomes/"+itoa(id), other, nil).Code)

	rec = do(t, s, http.MethodGet, "/api/outcomes", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]summaryResponse](t, rec))
}

func TestOutcomeStatusTransitions(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	rec := do(t, s, http.MethodPost, "/api/outcomes", tok, outcomeBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := itoa(int64(decode[map[string]any](t, rec)["id"].(float64)))
	statusPath := "/api/outcomes/" + id + "/update-status"

	itemsPath := "/api/outcomes/" + id + "/items"

	rec = do(t, s, http.MethodPut, statusPath, tok, map[string]any{"status": "1"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Body.String())
	rec = do(t, s, http.MethodGet, itemsPath, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]itemResponse](t, rec)
	require.Len(t, items, 1)
	finished := items[0]
	assert.Equal(t, "1", finished.Status)

	rec = do(t, s, http.MethodPut, statusPath, tok, map[string]any{"status": "0"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[validationResponse](t, rec).Errors, "newDate")

	next := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	rec = do(t, s, http.MethodPut, statusPath, tok, map[string]any{"status": 0, "newDate": next})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, itemsPath, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = decode[[]itemResponse](t, rec)
	require.Len(t, items, 2)
	reopened := items[0]
	assert.Equal(t, "0", reopened.Status)
	assert.NotEqual(t, finished.ID, reopened.ID)
	assert.Equal(t, next, reopened.PaymentDate.Format("2006-01-02"))

	rec = do(t, s, http.MethodPut, statusPath, tok, map[string]any{"status": "9"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOutcomeListMonthFilter(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	rec := do(t, s, http.MethodPost, "/api/outcomes", tok, outcomeBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/outcomes", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]summaryResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "1500.50", list[0].TotalAmount.String())

	rec = do(t, s, http.MethodGet, "/api/outcomes?year=2001&month=1", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[[]summaryResponse](t, rec)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].TotalAmount.Cents)

	rec = do(t, s, http.MethodGet, "/api/outcomes?month=13", tok, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[validationResponse](t, rec).Errors, "month")
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	tok := tokenFor(t, 1)

	rec := do(t, s, http.MethodPost, "/api/activities", tok, map[string]any{"name": "Viaje"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	groupID := itoa(decode[groupResponse](t, rec).ID)

	rec = do(t, s, http.MethodPost, "/api/activities/"+groupID+"/tasks", tok, map[string]any{
		"name":           "Hotel",
		"amount":         "300",
		"payment_method": "2",
		"status":         "0",
		"start_date":     "2026-01-10",
		"end_date":       "2026-01-12",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[taskResponse](t, rec)
	taskPath := "/api/activities/" + groupID + "/tasks/" + itoa(task.ID)

	before := time.Now().UTC().Add(-time.Second)
	rec = do(t, s, http.MethodPut, taskPath+"/update-status", tok, map[string]any{"status": "1"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Body.String())
	rec = do(t, s, http.MethodGet, taskPath, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[taskResponse](t, rec)
	assert.Equal(t, "1", updated.Status)
	assert.True(t, updated.StartDate.After(before), "start date reset to now")

	// Activities and projects do not share ids.
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/projects/"+groupID, tok, nil).Code)

	rec = do(t, s, http.MethodGet, "/api/activities/"+groupID+"/tasks", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]taskResponse](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, taskPath, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, taskPath, tok, nil).Code)
}

func TestCronTrigger(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.CronToken = "cron-secret" })

	rec := do(t, s, http.MethodPost, "/api/cron-job/update-dynamics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/cron-job/update-dynamics", nil)
	req.Header.Set("X-Cron-Token", "cron-secret")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestCronTriggerWithoutToken(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/cron-job/update-dynamics", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, s, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db down") }
	})
	rec = do(t, failing, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[map[string]any](t, rec)["status"])
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, http.MethodGet, "/healthz", "", nil)

	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total 2")
	assert.Contains(t, rec.Body.String(), "generator_runs_total 0")
}

func TestRateLimitOnWrites(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.RateLimitPerMinute = 2 })
	tok := tokenFor(t, 1)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/projects", tok, map[string]any{"name": "P"}).Code)
	}
	rec := do(t, s, http.MethodPost, "/api/projects", tok, map[string]any{"name": "P"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/projects", tok, nil).Code)
}
