package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/middleware/requestid"
)

func TestErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware())
	router.GET("/conflict", func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrInvalidStateTransition, "cannot move timetable from draft to published"))
	})
	router.GET("/boom", func(c *gin.Context) {
		Error(c, errors.New("driver: bad connection"))
	})

	req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)
	assert.Equal(t, "req-42", env.Meta["request_id"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, appErrors.ErrInternal.Code, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "bad connection")
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/items", func(c *gin.Context) {
		Created(c, gin.H{"id": "tt-1"}, Meta{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/items", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"id":"tt-1"}}`, w.Body.String())
}
