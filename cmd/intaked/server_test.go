package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/cargointake/pkg/auditlog"
	"github.com/gardar/cargointake/pkg/config"
)

const batchJSON = `{"nodes": [
  {"type": "document", "id": "d1", "DocType": "hawb", "children": [
    {"type": "page", "id": "p1", "styles": [{"id": 1, "v": "font-weight: bold; font-size: 14pt"}], "children": [
      {"type": "word", "v": "Invoice", "pos": "0,0,70,18", "s": 1}
    ]},
    {"type": "key", "children": [
      {"label": "executedOnDate", "v": "2024-01-01"}
    ]}
  ]}
]}`

func newTestServer(t *testing.T, yaml string) (*httptest.Server, *auditlog.SQLiteSink) {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit, err := auditlog.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	ts := httptest.NewServer(newServer(cfg, audit, logger).routes())
	t.Cleanup(ts.Close)
	return ts, audit
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "{}")
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRender(t *testing.T) {
	ts, _ := newTestServer(t, "{}")

	resp, out := post(t, ts.URL+"/render", batchJSON)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "# Page 1 (p1)\n\nInvoice", out["text"])

	_, out = post(t, ts.URL+"/render?markdown=true", batchJSON)
	assert.Equal(t, "# Page 1 (p1)\n\n# Invoice", out["text"])

	resp, out = post(t, ts.URL+"/render", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["error"])
}

func TestFlatten(t *testing.T) {
	ts, _ := newTestServer(t, "process_keys: [{keyValue: executedOnDate, precedence: [hawb]}]")

	resp, out := post(t, ts.URL+"/flatten", `{"batches": [`+batchJSON+`]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := out["data"].(map[string]any)
	assert.Equal(t, "2024-01-01", data["executedOnDate"])

	resp, out = post(t, ts.URL+"/flatten", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out["data"])
}

func TestProcessAndAudit(t *testing.T) {
	ts, _ := newTestServer(t, "{}")

	resp, out := post(t, ts.URL+"/process", `{"batches": `+batchJSON+`, "process_keys": [{"keyValue": "executedOnDate", "precedence": ["hawb"]}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "# Page 1 (p1)\n\nInvoice", out["text"])

	auditResp, err := http.Get(ts.URL + "/audit/" + id)
	require.NoError(t, err)
	defer auditResp.Body.Close()
	require.Equal(t, http.StatusOK, auditResp.StatusCode)

	var events []auditlog.Event
	require.NoError(t, json.NewDecoder(auditResp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, auditlog.StageFlatten, events[0].Stage)
	assert.Equal(t, "executedOnDate", events[0].Label)
	assert.Equal(t, []string{"d1"}, events[0].SourceDocIDs)
}
