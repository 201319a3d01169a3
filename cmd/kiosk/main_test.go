package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrkiosk/internal/attendance"
	"qrkiosk/internal/store"
)

func healthz(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", handler)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzSkipsRedisInMemoryMode(t *testing.T) {
	// No db, no broker; an all-memory kiosk is healthy on its own.
	unreachable := store.NewRedis("127.0.0.1:1")
	w := healthz(t, healthzHandler(nil, unreachable, true))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthzReportsUnreachableRedis(t *testing.T) {
	unreachable := store.NewRedis("127.0.0.1:1")
	w := healthz(t, healthzHandler(nil, unreachable, false))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	data, err := decodeSnapshot("")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = decodeSnapshot("data:image/jpeg;base64,/9g=")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)

	data, err = decodeSnapshot("/9g=")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)

	_, err = decodeSnapshot("not base64!!")
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, attendance.SourceImage, parseSource("image"))
	assert.Equal(t, attendance.SourceManual, parseSource("manual"))
	assert.Equal(t, attendance.SourceCamera, parseSource("camera"))
	assert.Equal(t, attendance.SourceCamera, parseSource("anything else"))
}
