package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridopt/internal/api/models"
)

const testNetworkYAML = `
snapshots:
  labels: [t0, t1]
buses:
  - name: b1
generators:
  - name: g1
    bus: b1
    attrs:
      nom: 100
      marginal_cost: 10
loads:
  - name: l1
    bus: b1
    series:
      p_set: [50, 60]
`

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewModelHandler(nil)
	r.POST("/api/v1/model", h.BuildModel)
	r.POST("/api/v1/validate", h.ValidateNetwork)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBuildModelEndpoint(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{NetworkYAML: testNetworkYAML})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 2, resp.Summary.Snapshots)
	assert.Greater(t, resp.Summary.Variables, 0)
	assert.Greater(t, resp.Summary.Constraints, 0)
	assert.NotEmpty(t, resp.Groups)
	assert.Empty(t, resp.LP)
}

func TestBuildModelIncludesLP(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{
		NetworkYAML: testNetworkYAML,
		Options:     models.BuildOptions{IncludeLP: true},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.BuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.LP, "minimize")
	assert.Contains(t, resp.LP, "subject to")
}

func TestBuildModelRejectsMissingBody(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/model", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestBuildModelRejectsInvalidNetwork(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{
		NetworkYAML: "snapshots:\n  labels: [t0]\ngenerators:\n  - name: g1\n    bus: nowhere\n",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_NETWORK", resp.Error.Code)
}

func TestBuildModelRejectsBadWindow(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{
		NetworkYAML: testNetworkYAML,
		Options:     models.BuildOptions{WindowStart: 1, WindowEnd: 9},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_WINDOW", resp.Error.Code)
}

func TestBuildModelRejectsStartPastHorizon(t *testing.T) {
	r := testRouter()
	// end defaults to the horizon, so only the start is out of range
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{
		NetworkYAML: testNetworkYAML,
		Options:     models.BuildOptions{WindowStart: 100},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_WINDOW", resp.Error.Code)
}

func TestBuildModelReportsBuildErrors(t *testing.T) {
	r := testRouter()
	// demand on a bus with nothing attached to supply it
	w := postJSON(t, r, "/api/v1/model", models.BuildRequest{
		NetworkYAML: `
snapshots:
  labels: [t0]
buses:
  - name: b1
loads:
  - name: l1
    bus: b1
    attrs:
      p_set: 50
`,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BUILD_ERROR", resp.Error.Code)
}

func TestValidateNetworkEndpoint(t *testing.T) {
	r := testRouter()
	w := postJSON(t, r, "/api/v1/validate", models.ValidateRequest{NetworkYAML: testNetworkYAML})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "valid", resp.Status)
	assert.Equal(t, 2, resp.Snapshots)
	assert.Equal(t, 1, resp.Components["Generator"])
	assert.Equal(t, 1, resp.Components["Load"])
}
