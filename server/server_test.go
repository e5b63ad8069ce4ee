package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/imanbakhtiari/alerting/notify"
	"github.com/imanbakhtiari/alerting/receivers"
	"github.com/imanbakhtiari/alerting/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), log.NewNopLogger())
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(st, notify.Config{Timeout: 2 * time.Second}, http.DefaultClient, clock.New(), nil, log.NewNopLogger())
	srv := New(st, dispatcher, prometheus.NewRegistry(), log.NewNopLogger())
	return srv.Router(), st
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAlertEndpoint(t *testing.T) {
	var hits int64
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer provider.Close()

	router, st := newTestRouter(t)
	require.NoError(t, st.AddRecipient("devops", receivers.Recipient{Number: "09123456789"}))
	_, err := st.AddProvider(provider.URL+"/sms/send", nil)
	require.NoError(t, err)
	_, err = st.AddProvider(provider.URL+"/hooks/x", nil)
	require.NoError(t, err)

	payload := `{"alerts": [{"status": "firing", "labels": {"alertname": "HighCPU"}, "annotations": {"summary": "CPU > 90%"}}]}`
	w := doJSON(t, router, http.MethodPost, "/alert/devops", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status             string `json:"status"`
		RecipientsNotified int    `json:"recipients_notified"`
		Attempts           int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, resp.RecipientsNotified)
	// 1 recipient x 1 SMS provider + 1 webhook provider.
	require.Equal(t, 2, resp.Attempts)
	require.EqualValues(t, 2, atomic.LoadInt64(&hits))
}

func TestAlertEndpointUnknownTeam(t *testing.T) {
	var hits int64
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer provider.Close()

	router, st := newTestRouter(t)
	_, err := st.AddProvider(provider.URL+"/hooks/x", nil)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/alert/doesnotexist", `{"alerts": []}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.EqualValues(t, 0, atomic.LoadInt64(&hits))
}

func TestAlertEndpointMalformedPayload(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/alert/devops", `{"alerts": [`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertEndpointPartialFailureStillOK(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	router, st := newTestRouter(t)
	require.NoError(t, st.AddRecipient("devops", receivers.Recipient{Number: "09123456789"}))
	_, err := st.AddProvider(broken.URL+"/hooks/x", nil)
	require.NoError(t, err)

	// Delivery failures are logged, not surfaced as a request failure.
	w := doJSON(t, router, http.MethodPost, "/alert/devops", `{"alerts": [{"status": "firing"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestManagementCRUD(t *testing.T) {
	router, st := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/teams/devops/numbers", `{"number": "09123456789", "label": "on call"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate within the team.
	w = doJSON(t, router, http.MethodPost, "/api/v1/teams/devops/numbers", `{"number": "09123456789"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	// Unknown team.
	w = doJSON(t, router, http.MethodPost, "/api/v1/teams/nosuch/numbers", `{"number": "1"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Missing number.
	w = doJSON(t, router, http.MethodPost, "/api/v1/teams/devops/numbers", `{"label": "x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/providers", `{"url": "https://chat.example.com/hooks/a1B2c3D4e5F6g7H8i9J0k1L2", "headers": {"Authorization": "Bearer tok"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		URL     string            `json:"url"`
		Kind    string            `json:"kind"`
		Headers map[string]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "webhook", created.Kind)
	require.NotContains(t, created.URL, "a1B2c3D4e5F6g7H8i9J0k1L2")
	require.Equal(t, "*****", created.Headers["Authorization"])

	w = doJSON(t, router, http.MethodPut, "/api/v1/template", `{"template": "{status}: {summary}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "{status}: {summary}", st.Snapshot().Template)

	w = doJSON(t, router, http.MethodGet, "/api/v1/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cfg struct {
		Teams     map[string][]receivers.Recipient `json:"teams"`
		Providers []struct {
			URL string `json:"url"`
		} `json:"providers"`
		Template string `json:"template"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	require.Len(t, cfg.Providers, 1)
	require.Contains(t, cfg.Providers[0].URL, "*****")
	require.Equal(t, "{status}: {summary}", cfg.Template)
	require.Len(t, cfg.Teams["devops"], 1)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/teams/devops/numbers/09123456789", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/providers/0", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, st.Snapshot().Providers)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/providers/notanumber", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/providers/9", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
}
