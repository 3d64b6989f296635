package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/entrhq/formless/pkg/matching"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *memory.FileStore) {
	t.Helper()
	store, err := memory.NewFileStore(filepath.Join(t.TempDir(), "memories"))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(store, matching.NewEngine(store), log, cfg))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestServer_RootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	code, body := getJSON(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"message": "Formless Backend API", "version": "0.1.0"}, body)

	code, body = getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_MemoriesAndMatching(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	ctx := context.Background()

	mem := memory.NewClient(srv.URL)
	_, err := mem.Create(ctx, memory.Input{Intent: "Email", Value: "a@b.com", Type: memory.TypeText})
	require.NoError(t, err)

	records, err := mem.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	resp, err := matching.NewClient(srv.URL).Match(ctx, matching.Request{ParsedFields: []string{"email", "Phone"}})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", resp.Value("email"))
	assert.Equal(t, "", resp.Value("Phone"))
}

func TestServer_Auth(t *testing.T) {
	srv, store := newTestServer(t, Config{APIKey: "secret"})
	ctx := context.Background()
	_, err := store.Create(ctx, memory.Input{Intent: "name", Value: "Ada", Type: memory.TypeText})
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing", wantCode: http.StatusUnauthorized, wantBody: "missing authorization"},
		{name: "wrong", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantBody: "invalid api key"},
		{name: "ok", header: "Bearer secret", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/matching",
				strings.NewReader(`{"parsed_fields":["name"],"memory_intents":null}`))
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.wantBody != "" {
				assert.JSONEq(t, `{"detail":"`+tt.wantBody+`"}`, string(raw))
			} else {
				assert.JSONEq(t, `{"matched_fields":{"name":"Ada"}}`, string(raw))
			}
		})
	}

	// Health stays public.
	code, _ := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)

	// The typed clients send the key.
	resp, err := matching.NewClient(srv.URL, matching.WithAPIKey("secret")).
		Match(ctx, matching.Request{ParsedFields: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.Value("name"))

	records, err := memory.NewClient(srv.URL, memory.WithAPIKey("secret")).List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = memory.NewClient(srv.URL).List(ctx)
	assert.ErrorContains(t, err, "status 401")
}

func TestRequestLogger_RecordsStatus(t *testing.T) {
	var buf strings.Builder
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/brew")
}
