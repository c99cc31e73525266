package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/application/cqe"
	"compress-service/ddd/application/dto"
	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/worker"
	"compress-service/pkg/errno"
	"compress-service/pkg/restapi"
)

type stubJobApp struct {
	submitted *cqe.SubmitJobCmd
	decided   *cqe.DecideCmd
	cancelled *cqe.CancelCmd
	listOwner string
	err       error
}

func (s *stubJobApp) Submit(_ context.Context, cmd *cqe.SubmitJobCmd) (*dto.JobDTO, error) {
	s.submitted = cmd
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return &dto.JobDTO{JobID: "job-1", OwnerID: cmd.OwnerID, State: "fetching"}, s.err
}

func (s *stubJobApp) Decide(context.Context, string, vo.Decision) (*dto.DecisionResultDTO, error) {
	return nil, s.err
}

func (s *stubJobApp) DecideText(_ context.Context, cmd *cqe.DecideCmd) (*dto.DecisionResultDTO, error) {
	s.decided = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &dto.DecisionResultDTO{JobID: cmd.JobID, State: "queued", Decision: cmd.Decision, Position: 1}, nil
}

func (s *stubJobApp) Cancel(_ context.Context, cmd *cqe.CancelCmd) (*dto.JobDTO, error) {
	s.cancelled = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &dto.JobDTO{JobID: cmd.JobID, State: "cancelled"}, nil
}

func (s *stubJobApp) Get(_ context.Context, id string) (*dto.JobDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.JobDTO{JobID: id, State: "queued"}, nil
}

func (s *stubJobApp) List(_ context.Context, owner string) (*dto.JobListDTO, error) {
	s.listOwner = owner
	return &dto.JobListDTO{Jobs: []*dto.JobDTO{}}, nil
}

func (s *stubJobApp) History(context.Context, string, int) (*dto.JobListDTO, error) {
	return &dto.JobListDTO{Jobs: []*dto.JobDTO{}}, nil
}

func (s *stubJobApp) Stats(context.Context) *dto.StatsDTO { return &dto.StatsDTO{} }
func (s *stubJobApp) HandleTerminal(context.Context, *entity.Job) {}
func (s *stubJobApp) AttachWorker(worker.CompressionWorker) {}
func (s *stubJobApp) Shutdown() {}

func newTestEngine(a *stubJobApp) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r := NewRouter(a)
	r.SetupMiddleware(engine)
	r.SetupRoutes(engine)
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, restapi.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp restapi.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSubmitUsesOwnerHeader(t *testing.T) {
	a := &stubJobApp{}
	engine := newTestEngine(a)

	w, resp := do(t, engine, http.MethodPost, "/api/v1/jobs", `{"source_ref":"videos/a.mp4","owner_id":"mallory"}`,
		map[string]string{"X-Owner-ID": "alice"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, resp.Code)
	assert.NotEmpty(t, resp.RequestID)
	require.NotNil(t, a.submitted)
	assert.Equal(t, "alice", a.submitted.OwnerID)
}

func TestSubmitValidation(t *testing.T) {
	engine := newTestEngine(&stubJobApp{})

	w, _ := do(t, engine, http.MethodPost, "/api/v1/jobs", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := do(t, engine, http.MethodPost, "/api/v1/jobs", `{"source_ref":"a.mp4"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errno.ErrOwnerIDRequired.Code, resp.Code)
}

func TestDecisionAndCancelRoutes(t *testing.T) {
	a := &stubJobApp{}
	engine := newTestEngine(a)

	w, _ := do(t, engine, http.MethodPost, "/api/v1/jobs/job-7/decision", `{"decision":"size:50"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, a.decided)
	assert.Equal(t, "job-7", a.decided.JobID)
	assert.Equal(t, "size:50", a.decided.Decision)

	w, _ = do(t, engine, http.MethodPost, "/api/v1/jobs/job-7/cancel", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, a.cancelled)
	assert.Equal(t, "job-7", a.cancelled.JobID)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errno.Errorf(errno.ErrJobNotFound, "job x"), http.StatusNotFound},
		{errno.NewBizError(errno.ErrCancelNotApplicable, nil), http.StatusConflict},
		{errno.ErrDecisionNotApplicable, http.StatusConflict},
		{errno.ErrQueueFull, http.StatusServiceUnavailable},
		{errno.ErrInvalidInput, http.StatusBadRequest},
	}
	for _, tc := range cases {
		engine := newTestEngine(&stubJobApp{err: tc.err})
		w, _ := do(t, engine, http.MethodPost, "/api/v1/jobs/j/cancel", `{"reason":"x"}`, nil)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestListFallsBackToOwnerHeader(t *testing.T) {
	a := &stubJobApp{}
	engine := newTestEngine(a)

	w, _ := do(t, engine, http.MethodGet, "/api/v1/jobs", "", map[string]string{"X-Owner-ID": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", a.listOwner)

	w, _ = do(t, engine, http.MethodGet, "/api/v1/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	engine := newTestEngine(&stubJobApp{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "compress-service")
}
