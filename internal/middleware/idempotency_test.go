package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/middleware"
)

type mapCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func makeTestHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(handler http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/feedback", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, counter)
	assert.Zero(t, c.len())
}

func TestIdempotency_FirstRequestStoresResponse(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/feedback", "key-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, counter)

	require.Equal(t, 1, c.len())
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, ttl := range c.ttls {
		assert.True(t, strings.HasPrefix(k, "idem."), "key %q", k)
		assert.NotContains(t, k, "key-1")
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec1 := post(handler, "/feedback", "key-2")
	rec2 := post(handler, "/feedback", "key-2")

	assert.Equal(t, 1, counter)
	assert.Equal(t, http.StatusCreated, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, "application/json", rec2.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec2.Header().Get("Idempotent-Replayed"))
	assert.Empty(t, rec1.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_FailedResponseNotStored(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusConflict))

	post(handler, "/feedback/1/merge", "key-3")
	post(handler, "/feedback/1/merge", "key-3")

	assert.Equal(t, 2, counter)
	assert.Zero(t, c.len())
}

func TestIdempotency_KeyScopedToPath(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusOK))

	post(handler, "/feedback/1/llm-approve", "same")
	post(handler, "/feedback/2/llm-approve", "same")

	assert.Equal(t, 2, counter)
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusOK))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/feedback", http.NoBody)
		req.Header.Set("Idempotency-Key", "key-get")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2, counter)
	assert.Zero(t, c.len())
}

func TestIdempotency_DifferentKeys(t *testing.T) {
	counter := 0
	c := newMapCache()
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	post(handler, "/feedback", "key-a")
	post(handler, "/feedback", "key-b")

	assert.Equal(t, 2, counter)
}

func TestIdempotency_CacheErrorFallsThrough(t *testing.T) {
	counter := 0
	c := newMapCache()
	c.getErr = errors.New("cache down")
	handler := middleware.Idempotency(c, time.Hour)(makeTestHandler(&counter, http.StatusCreated))

	rec := post(handler, "/feedback", "key-err")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, counter)
}
