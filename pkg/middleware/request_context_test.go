package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestContextMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContextMiddleware(), AccessLog())
	var owner, reqID string
	r.GET("/x", func(c *gin.Context) {
		owner = OwnerID(c)
		reqID = c.GetString(CtxRequestID)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderOwnerID, " alice ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "alice", owner)
	assert.NotEmpty(t, reqID)
	assert.Equal(t, reqID, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "fixed")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "", owner)
	assert.Equal(t, "fixed", reqID)
}
