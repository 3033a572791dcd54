package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/d0ngw/dlcounter/cache"
	"github.com/d0ngw/dlcounter/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCounter(t *testing.T, now *time.Time) (*miniredis.Miniredis, *counter.DownloadCounter) {
	s := miniredis.RunT(t)
	conf := &cache.RedisConf{URL: "redis://" + s.Addr()}
	require.NoError(t, conf.Parse())
	store := counter.NewRedisStore("KV", cache.DefaultGroup, counter.DefaultHashTag, conf.NewRedisClient())
	dc := counter.NewDownloadCounter(store, nil).WithClock(func() time.Time { return *now })
	t.Cleanup(func() { dc.Stop() })
	return s, dc
}

func do(t *testing.T, handler http.Handler, method string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, DefaultPath, nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	return rec
}

func TestScenario(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	_, dc := newRedisCounter(t, &now)
	handler := NewHandler(dc).WithCORS()

	rec := do(t, handler, http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":0,"today":0}`, rec.Body.String())

	rec = do(t, handler, http.MethodPost)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"total":1}`, rec.Body.String())

	rec = do(t, handler, http.MethodPost)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"total":2}`, rec.Body.String())

	rec = do(t, handler, http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2,"today":2}`, rec.Body.String())
}

func TestMidnight(t *testing.T) {
	now := time.Date(2025, 1, 15, 23, 59, 59, 0, time.UTC)
	s, dc := newRedisCounter(t, &now)
	handler := NewHandler(dc).WithCORS()

	do(t, handler, http.MethodPost)
	now = time.Date(2025, 1, 16, 0, 0, 1, 0, time.UTC)
	rec := do(t, handler, http.MethodPost)
	assert.JSONEq(t, `{"success":true,"total":2}`, rec.Body.String())

	rec = do(t, handler, http.MethodGet)
	assert.JSONEq(t, `{"total":2,"today":1}`, rec.Body.String())

	for _, key := range []string{"resume:downloads:2025-01-15", "resume:downloads:2025-01-16"} {
		v, err := s.Get(key)
		assert.NoError(t, err)
		assert.Equal(t, "1", v)
	}
}

func TestConcurrentPost(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s, dc := newRedisCounter(t, &now)
	handler := NewHandler(dc).WithCORS()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultPath, nil))
		}()
	}
	wg.Wait()

	total, err := s.Get("resume:downloads:total")
	assert.NoError(t, err)
	assert.Equal(t, "20", total)
	today, err := s.Get("resume:downloads:2025-01-15")
	assert.NoError(t, err)
	assert.Equal(t, "20", today)
}

func TestOptions(t *testing.T) {
	now := time.Now()
	s, dc := newRedisCounter(t, &now)
	s.Close()
	handler := NewHandler(dc).WithCORS()

	rec := do(t, handler, http.MethodOptions)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, NewHandler(counter.NewDownloadCounter(counter.NopStore("KV"), nil)).WithCORS(), http.MethodOptions)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	handler := NewHandler(counter.NewDownloadCounter(counter.NopStore("KV"), nil)).WithCORS()
	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, "FOO"} {
		rec := do(t, handler, method)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		if method != http.MethodHead {
			assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String(), method)
		}
	}
}

func TestDegraded(t *testing.T) {
	now := time.Now()
	s, dc := newRedisCounter(t, &now)
	s.Close()

	for _, handler := range []http.Handler{
		NewHandler(dc).WithCORS(),
		NewHandler(counter.NewDownloadCounter(counter.NopStore("KV"), nil)).WithCORS(),
	} {
		for _, method := range []string{http.MethodPost, http.MethodGet} {
			rec := do(t, handler, method)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"success":true,"total":0,"note":"KV not configured yet"}`, rec.Body.String())
		}
	}
}

type slowCounter struct{}

func (slowCounter) StoreName() string { return "Vercel KV" }

func (slowCounter) Track(ctx context.Context) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (slowCounter) Stats(ctx context.Context) (counter.Stats, error) {
	<-ctx.Done()
	return counter.Stats{}, ctx.Err()
}

func TestCanceledRequest(t *testing.T) {
	handler := NewHandler(slowCounter{}).WithCORS()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultPath, nil).WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"total":0,"note":"Vercel KV not configured yet"}`, rec.Body.String())
}
