package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/pkg/errno"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func run(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	ctx.Set("request_id", "req-1")
	handler(ctx)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSuccess(t *testing.T) {
	w, resp := run(t, func(c *gin.Context) { Success(c, gin.H{"id": "j-1"}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestFailedStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{errno.ErrJobNotFound, http.StatusNotFound, 20008},
		{errno.ErrDuplicateActiveJob, http.StatusConflict, 20010},
		{errno.ErrCancelNotApplicable, http.StatusConflict, 20015},
		{errno.ErrQueueFull, http.StatusServiceUnavailable, 20012},
		{errno.NewBizError(errno.ErrInvalidInput, errors.New("abc")), http.StatusBadRequest, 20013},
		{errors.New("boom"), http.StatusInternalServerError, 500},
	}
	for _, tc := range cases {
		w, resp := run(t, func(c *gin.Context) { Failed(c, tc.err) })
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.code, resp.Code, tc.err.Error())
	}
}
