package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	httpH "github.com/kocahmet1/ultrasat-progress/internal/http/handlers"
	"github.com/kocahmet1/ultrasat-progress/internal/http/response"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

type fakeProgress struct {
	services.ProgressService

	gotAttempt services.AttemptInput
	stats      map[string]*types.UserStatsCache
	statsErr   error
}

func (f *fakeProgress) RecordAttempt(_ context.Context, in services.AttemptInput) (*types.SubcategoryProgress, error) {
	f.gotAttempt = in
	if in.UserID == "" {
		return nil, apperr.Validation("record attempt", "missing user id")
	}
	return &types.SubcategoryProgress{UserID: in.UserID, SubcategoryID: in.SubcategoryID, Level: 1, TotalAttempts: 1}, nil
}

func (f *fakeProgress) GetStats(_ context.Context, userID string) (*types.UserStatsCache, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if row, ok := f.stats[userID]; ok {
		return row, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "get stats", "no stats for user")
}

func newTestRouter(f *fakeProgress) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Log:             logger.Nop(),
		ProgressHandler: httpH.NewProgressHandler(f),
		HealthHandler:   httpH.NewHealthHandler(nil),
	})
}

func TestRecordAttemptRoute(t *testing.T) {
	f := &fakeProgress{}
	r := newTestRouter(f)

	body := `{"user_id":" u1 ","question_id":"q1","subcategory_id":"algebra","concept_ids":["c1"],"is_correct":true,"answered_at":"2026-01-02T03:04:05Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/attempts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if f.gotAttempt.UserID != "u1" {
		t.Fatalf("user id: want=%q got=%q", "u1", f.gotAttempt.UserID)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !f.gotAttempt.AnsweredAt.Equal(want) {
		t.Fatalf("answered_at: want=%v got=%v", want, f.gotAttempt.AnsweredAt)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestRecordAttemptRouteRejectsBadInput(t *testing.T) {
	r := newTestRouter(&fakeProgress{})

	cases := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed json", body: `{"user_id":`, code: "invalid_request"},
		{name: "missing user", body: `{"question_id":"q1","subcategory_id":"s1"}`, code: string(apperr.KindValidation)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/attempts", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status: want=%d got=%d", tc.name, http.StatusBadRequest, rec.Code)
		}
		var env response.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s decode: %v", tc.name, err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%s code: want=%q got=%q", tc.name, tc.code, env.Error.Code)
		}
	}
}

func TestGetStatsRoute(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeProgress{stats: map[string]*types.UserStatsCache{
		"u1": {UserID: "u1", TotalQuestions: 12, Accuracy: 75, LastUpdated: now},
	}}
	r := newTestRouter(f)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
	var out struct {
		Stats types.UserStatsCache `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Stats.TotalQuestions != 12 || out.Stats.Accuracy != 75 {
		t.Fatalf("stats: want=12/75 got=%d/%d", out.Stats.TotalQuestions, out.Stats.Accuracy)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/nobody/stats", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: apperr.Wrap(apperr.KindTransient, "load", errors.New("database is locked")), want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newTestRouter(&fakeProgress{statsErr: tc.err})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u1/stats", nil))
		if rec.Code != tc.want {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestHealthRoutes(t *testing.T) {
	r := newTestRouter(&fakeProgress{})
	for _, path := range []string{"/healthcheck", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want=%d got=%d", path, http.StatusOK, rec.Code)
		}
	}
}
