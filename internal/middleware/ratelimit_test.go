package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request allowed, want denied")
	}
	// Other clients are unaffected.
	if !rl.Allow("10.0.0.2") {
		t.Fatal("different ip denied")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second request allowed inside window")
	}
	time.Sleep(80 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("request denied after window passed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(2, time.Hour), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	status := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if s := status(); s != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", s)
	}
	if s := status(); s != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", s)
	}
	if s := status(); s != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", s)
	}
}
