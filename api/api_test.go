package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/beamlab/dms/docs"
	"github.com/beamlab/dms/store/memory"
)

const testSchema = `{
  "CrossSection": {
    "width": {"dtype": "f", "unit": "m"}
  },
  "Beam": {
    "length": {"dtype": "f", "unit": "m"},
    "name": {"dtype": "str"},
    "cs": {"link": "CrossSection"}
  }
}`

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	st := memory.New()
	srv := httptest.NewServer(New(docs.New(st), st, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func postSchema(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, raw := do(t, http.MethodPost, srv.URL+"/dms0/schema", testSchema)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"ok"`, string(raw))

	resp, _ = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSchemaRoutes(t *testing.T) {
	srv := newTestServer(t)
	postSchema(t, srv)

	resp, raw := do(t, http.MethodGet, srv.URL+"/dms0/schema", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "Beam")
	assert.NotContains(t, doc, "_id")

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/schema?include_id=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "_id")

	// Re-import requires force.
	resp, raw = do(t, http.MethodPost, srv.URL+"/dms0/schema", testSchema)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "Conflict")

	resp, _ = do(t, http.MethodPost, srv.URL+"/dms0/schema?force=true", testSchema)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["Beam", "CrossSection"]`, string(raw))
}

func TestObjectLifecycle(t *testing.T) {
	srv := newTestServer(t)
	postSchema(t, srv)

	resp, raw := do(t, http.MethodPost, srv.URL+"/dms0/Beam", `{
	  "length": {"value": 2500, "unit": "mm"},
	  "name": "b1",
	  "cs": {"width": {"value": 0.2, "unit": "m"}}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var id string
	require.NoError(t, json.Unmarshal(raw, &id))
	require.Len(t, id, 24)

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []string
	require.NoError(t, json.Unmarshal(raw, &ids))
	assert.Equal(t, []string{id}, ids)

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"?meta=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	assert.InEpsilon(t, 2.5, obj["length"].(map[string]any)["value"].(float64), 1e-12)
	assert.NotContains(t, obj, "_meta")

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"?path=length&meta=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var q map[string]any
	require.NoError(t, json.Unmarshal(raw, &q))
	assert.Equal(t, "m", q["unit"])

	body := `{"path": "length", "data": {"value": 3, "unit": "m"}}`
	resp, raw = do(t, http.MethodPatch, srv.URL+"/dms0/Beam/"+id, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"?path=length", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &q))
	assert.InEpsilon(t, 3.0, q["value"].(float64), 1e-12)
}

func TestCloneGraphAndSafeLinks(t *testing.T) {
	srv := newTestServer(t)
	postSchema(t, srv)

	resp, raw := do(t, http.MethodPost, srv.URL+"/dms0/Beam", `{"name": "b1", "cs": {"width": {"value": 1, "unit": "m"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var id string
	require.NoError(t, json.Unmarshal(raw, &id))

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"/clone", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var cloneID string
	require.NoError(t, json.Unmarshal(raw, &cloneID))
	assert.NotEqual(t, id, cloneID)

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var g struct {
		Nodes []string    `json:"nodes"`
		Edges [][2]string `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/"+id+"/safe-links?paths=cs.width", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var safe []string
	require.NoError(t, json.Unmarshal(raw, &safe))
	assert.Empty(t, safe)
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	postSchema(t, srv)

	resp, raw := do(t, http.MethodGet, srv.URL+"/dms0/Beam/aaaaaaaaaaaaaaaaaaaaaaaa", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var env struct {
		Type      string   `json:"type"`
		Message   string   `json:"message"`
		URL       string   `json:"url"`
		Method    string   `json:"method"`
		Traceback []string `json:"traceback"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "UnknownId", env.Type)
	assert.NotContains(t, env.Message, `"`)
	assert.Contains(t, env.URL, "/dms0/Beam/")
	assert.Equal(t, http.MethodGet, env.Method)
	assert.Nil(t, env.Traceback)

	// debug=true includes the traceback.
	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/aaaaaaaaaaaaaaaaaaaaaaaa?debug=true", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.NotEmpty(t, env.Traceback)

	// Unusable query values are envelope errors too.
	resp, raw = do(t, http.MethodGet, srv.URL+"/dms0/Beam/aaaaaaaaaaaaaaaaaaaaaaaa?max_level=soon", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "BadRequest", env.Type)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "fixed-id")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, WithRateLimit(rate.Limit(0.001), 1))

	resp, _ := do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
