package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"checkout-service/auth"
	"checkout-service/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func stateRouter(parser *auth.TokenParser) (*gin.Engine, *auth.State) {
	var got auth.State
	r := gin.New()
	r.Use(AuthState(parser))
	r.GET("/whoami", func(c *gin.Context) {
		got = auth.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r, &got
}

func TestAuthState(t *testing.T) {
	parser := auth.NewTokenParser("secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "jwt-user", "email": "jwt@example.com", "typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name        string
		headers     map[string]string
		wantUID     string
		wantEmail   string
		wantLoading bool
	}{
		{name: "guest"},
		{name: "pending", headers: map[string]string{HeaderAuthPending: "true", HeaderUserID: "u1"}, wantLoading: true},
		{name: "gateway_headers", headers: map[string]string{HeaderUserID: " u1 ", HeaderUserEmail: "u1@example.com"}, wantUID: "u1", wantEmail: "u1@example.com"},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer " + token}, wantUID: "jwt-user", wantEmail: "jwt@example.com"},
		{name: "bearer_wins_over_headers", headers: map[string]string{"Authorization": "Bearer " + token, HeaderUserID: "u1"}, wantUID: "jwt-user", wantEmail: "jwt@example.com"},
		{name: "bad_bearer_is_guest", headers: map[string]string{"Authorization": "Bearer nope", HeaderUserID: "u1"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, got := stateRouter(parser)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantLoading, got.Loading)
			if tt.wantUID == "" {
				assert.Nil(t, got.User)
				return
			}
			require.NotNil(t, got.User)
			assert.Equal(t, tt.wantUID, got.User.UID)
			assert.Equal(t, tt.wantEmail, got.User.Email)
		})
	}
}

func TestRequireUser(t *testing.T) {
	r := gin.New()
	r.Use(AuthState(auth.NewTokenParser("")), RequireUser())
	r.GET("/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderAuthPending, "true")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(HeaderUserID, "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "rid-1", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2, time.Minute)
	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(rate.Inf, 1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Limiter("a")
	now = now.Add(30 * time.Second)
	rl.Limiter("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.entries, 1)
	assert.Contains(t, rl.entries, "b")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no_origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

type fakeRecorder struct {
	mu      sync.Mutex
	counts  map[string]int
	latency int
	done    chan struct{}
}

func (f *fakeRecorder) IsEnabled() bool { return true }

func (f *fakeRecorder) RecordCount(ctx context.Context, name string, dims map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name+"|"+dims["Path"]+"|"+dims["Status"]]++
	return nil
}

func (f *fakeRecorder) RecordLatency(ctx context.Context, name string, d time.Duration, dims map[string]string) error {
	f.mu.Lock()
	f.latency++
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func TestCloudWatchMetrics(t *testing.T) {
	rec := &fakeRecorder{counts: map[string]int{}, done: make(chan struct{}, 1)}
	r := gin.New()
	r.Use(CloudWatchMetrics(rec, "checkout-service"))
	r.GET("/checkout/payments/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/checkout/payments/abc", nil))

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("metrics were not recorded")
	}
	// the error counters are written after the latency call
	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.counts["HTTP4xxErrors|/checkout/payments/:id|4xx"] == 1
	}, time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.counts["HTTPRequests|/checkout/payments/:id|4xx"])
	assert.Equal(t, 1, rec.counts["HTTPErrors|/checkout/payments/:id|4xx"])
}

func TestPrometheusMetrics(t *testing.T) {
	m := metrics.NewServerMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(PrometheusMetrics(m))
	r.GET("/checkout/payments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/checkout/payments/a1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/checkout/payments/a2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/checkout/payments/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))
}
