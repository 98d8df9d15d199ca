package itest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Overland-East-Bay/idem-ops-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/idem-ops-api/internal/adapters/memory/idempotency"
	"github.com/Overland-East-Bay/idem-ops-api/internal/app/idem"
	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
	platformclock "github.com/Overland-East-Bay/idem-ops-api/internal/platform/clock"
)

const adminKey = "itest-admin-key"

type testServer struct {
	baseURL string
	client  *http.Client
	svc     *idem.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clk := platformclock.NewSystemClock()
	store := memidempotency.NewStore(clk, domain.LongestWindow().Size)
	svc := idem.NewService(store, clk)
	t.Cleanup(svc.Reset)

	orders := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler := httpapi.NewRouter(svc, httpapi.RouterOptions{
		AdminKey:          adminKey,
		Downstream:        orders,
		DisableRequestLog: true,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		svc:     svc,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) do(t *testing.T, method string, path string, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()

	req, err := http.NewRequest(method, s.url(path), nil)
	if err != nil {
		t.Errorf("new request: %v", err)
		return 0, nil, nil
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Errorf("do request: %v", err)
		return 0, nil, nil
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type snapshot struct {
	Present        int64  `json:"present"`
	Unique         int64  `json:"unique"`
	Dupes          int64  `json:"dupes"`
	DupePercentage string `json:"dupePercentage"`
}

type statsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Window5m    snapshot `json:"window5m"`
		Window60m   snapshot `json:"window60m"`
		TrackedKeys int      `json:"trackedKeys"`
	} `json:"data"`
}

type errorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) stats(t *testing.T) statsResponse {
	t.Helper()
	status, body, _ := s.do(t, http.MethodGet, "/api/ops/idem/stats", map[string]string{httpapi.HeaderAdminKey: adminKey})
	if status != http.StatusOK {
		t.Fatalf("stats status=%d body=%s", status, string(body))
	}
	return mustUnmarshal[statsResponse](t, body)
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	if got.Success {
		t.Fatalf("success=true on error body=%s", string(body))
	}
}

func requireHeader(t *testing.T, h http.Header, key string, want string) {
	t.Helper()
	if got := h.Get(key); got != want {
		t.Fatalf("header %q: got %q want %q", key, got, want)
	}
}
