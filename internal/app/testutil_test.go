package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"folio/api/internal/config"
	"folio/api/internal/kv"
)

const testAdminPassword = "test-admin"

// fakeKV is a map-backed store with overridable function fields so
// individual tests can inject failures.
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage

	getFn    func(ctx context.Context, key string) (json.RawMessage, error)
	setFn    func(ctx context.Context, key string, value json.RawMessage) error
	deleteFn func(ctx context.Context, key string) error
	prefixFn func(ctx context.Context, prefix string) ([]json.RawMessage, error)
	pingFn   func(ctx context.Context) error

	setCalls int
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[string]json.RawMessage)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if f.getFn != nil {
		return f.getFn(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return value, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value json.RawMessage) error {
	f.mu.Lock()
	f.setCalls++
	f.mu.Unlock()
	if f.setFn != nil {
		return f.setFn(ctx, key, value)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeKV) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	if f.prefixFn != nil {
		return f.prefixFn(ctx, prefix)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make([]json.RawMessage, 0)
	for key, value := range f.entries {
		if strings.HasPrefix(key, prefix) {
			values = append(values, value)
		}
	}
	return values, nil
}

func (f *fakeKV) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeKV) Close() error { return nil }

func newTestService(store kv.Store) *Service {
	cfg := config.Config{
		AdminPassword: testAdminPassword,
		TokenSecret:   "test-secret",
		AccessTTL:     time.Hour,
		UnlockTTL:     10 * time.Minute,
	}
	return NewService(cfg, store, nil, nil, nil)
}

func newTestServer(store kv.Store) *HTTPServer {
	return NewHTTPServer(newTestService(store), "*")
}

// doJSON runs a request with an optional JSON body through the handler and
// decodes the response.
func doJSON(t *testing.T, server *HTTPServer, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	var response map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, response
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Password": testAdminPassword}
}

func doAdminJSON(t *testing.T, server *HTTPServer, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return doJSON(t, server, method, path, body, adminHeaders())
}

func dataOf(t *testing.T, response map[string]any) any {
	t.Helper()
	if success, _ := response["success"].(bool); !success {
		t.Fatalf("expected success envelope, got %v", response)
	}
	return response["data"]
}

func dataObject(t *testing.T, response map[string]any) map[string]any {
	t.Helper()
	object, ok := dataOf(t, response).(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", response["data"])
	}
	return object
}

func dataList(t *testing.T, response map[string]any) []any {
	t.Helper()
	list, ok := dataOf(t, response).([]any)
	if !ok {
		t.Fatalf("expected data list, got %v", response["data"])
	}
	return list
}
