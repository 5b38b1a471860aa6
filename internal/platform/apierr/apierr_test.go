package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"

	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation("record attempt", "missing user id"), http.StatusBadRequest, "validation"},
		{"not found", apperr.New(apperr.KindNotFound, "get stats", "no stats for user"), http.StatusNotFound, "not_found"},
		{"untagged record not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "not_found"},
		{"transient", apperr.Wrap(apperr.KindTransient, "load attempts", context.DeadlineExceeded), http.StatusServiceUnavailable, "transient"},
		{"fatal setup hidden as internal", apperr.FatalSetup("open db", errors.New("bad dsn")), http.StatusInternalServerError, "internal"},
		{"edge error in chain", fmt.Errorf("bind: %w", InvalidRequest(errors.New("unexpected EOF"))), http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err)
			if got == nil || got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("From: want=(%d,%s) got=%+v", tc.status, tc.code, got)
			}
		})
	}
	if From(nil) != nil {
		t.Fatalf("From(nil): want nil")
	}
}

func TestErrorMessage(t *testing.T) {
	if got := New(http.StatusConflict, "", nil).Error(); got != "Conflict" {
		t.Fatalf("Error(): got=%q", got)
	}
	if got := InvalidRequest(errors.New("bad json")).Error(); got != "bad json" {
		t.Fatalf("Error(): got=%q", got)
	}
}
