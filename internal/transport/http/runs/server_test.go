package runshttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stratguard/internal/store"
)

type MockRunReader struct {
	mock.Mock
}

func (m *MockRunReader) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]store.RunRecord), args.Error(1)
}

func (m *MockRunReader) GetRun(ctx context.Context, runID string) (store.RunRecord, bool, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(store.RunRecord), args.Bool(1), args.Error(2)
}

func (m *MockRunReader) LookaheadForRun(ctx context.Context, runID string) ([]store.LookaheadRecord, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]store.LookaheadRecord), args.Error(1)
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunList(t *testing.T) {
	reader := new(MockRunReader)
	started := time.UnixMilli(1700000000000)
	reader.On("ListRuns", mock.Anything, 5).Return([]store.RunRecord{
		{ID: "r1", Mode: "hyperopt", Outcome: "skipped", StartedAt: started},
	}, nil)

	rec := serve(t, NewServer(Config{Results: reader}), "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []store.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "r1", body.Runs[0].ID)
	assert.Equal(t, "skipped", body.Runs[0].Outcome)
	reader.AssertExpectations(t)
}

func TestRunListStoreError(t *testing.T) {
	reader := new(MockRunReader)
	reader.On("ListRuns", mock.Anything, 50).Return([]store.RunRecord(nil), errors.New("db locked"))
	rec := serve(t, NewServer(Config{Results: reader}), "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db locked")
}

func TestRunLookahead(t *testing.T) {
	reader := new(MockRunReader)
	reader.On("GetRun", mock.Anything, "r1").Return(store.RunRecord{ID: "r1"}, true, nil)
	reader.On("LookaheadForRun", mock.Anything, "r1").Return([]store.LookaheadRecord{
		{RunID: "r1", Strategy: "A", HasBias: true, BiasedIndicators: []string{"ema"}},
	}, nil)

	rec := serve(t, NewServer(Config{Results: reader}), "/api/runs/r1/lookahead")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RunID   string                  `json:"run_id"`
		Results []store.LookaheadRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "r1", body.RunID)
	require.Len(t, body.Results, 1)
	assert.True(t, body.Results[0].HasBias)
	assert.Equal(t, []string{"ema"}, body.Results[0].BiasedIndicators)
}

func TestRunNotFound(t *testing.T) {
	reader := new(MockRunReader)
	reader.On("GetRun", mock.Anything, "nope").Return(store.RunRecord{}, false, nil)
	s := NewServer(Config{Results: reader})

	assert.Equal(t, http.StatusNotFound, serve(t, s, "/api/runs/nope").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/api/runs/nope/lookahead").Code)
	reader.AssertNotCalled(t, "LookaheadForRun", mock.Anything, mock.Anything)
}

func TestStoreDisabled(t *testing.T) {
	s := NewServer(Config{})
	assert.Equal(t, ":9991", s.Addr())
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, "/api/runs").Code)
	assert.Equal(t, http.StatusOK, serve(t, s, "/healthz").Code)
}
