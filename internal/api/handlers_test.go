package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-scan-server/internal/domain"
	"github.com/vigil-scan-server/internal/history"
	"github.com/vigil-scan-server/internal/repository"
	"github.com/vigil-scan-server/internal/service"
)

type staticConfig struct {
	cfg *domain.Config
}

func (s *staticConfig) GetConfig() *domain.Config                 { return s.cfg }
func (s *staticConfig) GetServerConfig() *domain.ServerConfig     { return &s.cfg.Server }
func (s *staticConfig) GetDatabaseConfig() *domain.DatabaseConfig { return &s.cfg.Database }
func (s *staticConfig) GetModelConfig() *domain.ModelAPIConfig    { return &s.cfg.Model }
func (s *staticConfig) GetStorageConfig() *domain.StorageConfig   { return &s.cfg.Storage }
func (s *staticConfig) GetCacheConfig() *domain.CacheConfig       { return &s.cfg.Cache }
func (s *staticConfig) Validate() error                           { return nil }
func (s *staticConfig) IsDevelopment() bool                       { return true }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	profiles := repository.NewMemoryProfileStore()
	analysis := service.NewAnalysisService(logger, service.AnalysisDeps{
		History:  history.NewMemoryStore(),
		Profiles: profiles,
	})

	return NewServer(&staticConfig{cfg: &domain.Config{}}, logger, analysis, profiles, HealthCheckers{})
}

func performJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze_MissingInput(t *testing.T) {
	srv := newTestServer(t)

	rec := performJSON(t, srv, http.MethodPost, "/api/v1/analyze", map[string]string{
		"session_id": "session-1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error domain.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrInvalidInput, body.Error.Code)
	assert.Contains(t, body.Error.Details, "extracted_text")
}

func TestHandleAnalyze_LocalPipeline(t *testing.T) {
	srv := newTestServer(t)

	rec := performJSON(t, srv, http.MethodPost, "/api/v1/analyze", map[string]string{
		"session_id":     "session-1",
		"extracted_text": "Ingredients: sugar, salt",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.CAUTION, resp.Result.Verdict)
	assert.NotEmpty(t, resp.ScanID)
}

func TestHandleHistory_EmptySession(t *testing.T) {
	srv := newTestServer(t)

	rec := performJSON(t, srv, http.MethodGet, "/api/v1/history/session-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"records":[]`)
}

func TestHandleProfile_RoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := performJSON(t, srv, http.MethodGet, "/api/v1/profile/session-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performJSON(t, srv, http.MethodPut, "/api/v1/profile/session-1", map[string]any{
		"age":       44,
		"allergies": []string{"peanuts"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performJSON(t, srv, http.MethodGet, "/api/v1/profile/session-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile domain.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 44, profile.Age)
	assert.Equal(t, []string{"peanuts"}, profile.Allergies)
}
