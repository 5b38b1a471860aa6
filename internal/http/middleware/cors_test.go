package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSAllowsLocalDevOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:3000"} {
		r := gin.New()
		r.Use(CORS())
		r.OPTIONS("/api/attempts", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodOptions, "/api/attempts", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s status: got=%d want=%d", origin, rec.Code, http.StatusNoContent)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("%s allow-origin: got=%q want=%q", origin, got, origin)
		}
	}
}

func TestAllowedOriginsFromEnvList(t *testing.T) {
	got := allowedOrigins(" https://app.example.com , ,https://admin.example.com")
	if len(got) != 2 || got[0] != "https://app.example.com" || got[1] != "https://admin.example.com" {
		t.Fatalf("allowedOrigins: got=%v", got)
	}
	if got := allowedOrigins("  "); len(got) != len(defaultOrigins) {
		t.Fatalf("allowedOrigins default: got=%v", got)
	}
}
