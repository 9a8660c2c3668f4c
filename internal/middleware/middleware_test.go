package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/service"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
}

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func TestJWTAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := staticValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleFaculty}}

	router := gin.New()
	router.Use(JWT(validator))
	router.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/approve", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/generate", RequireRoles(models.RoleAdmin, models.RoleFaculty), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name    string
		method  string
		path    string
		header  string
		upgrade bool
		want    int
	}{
		{"missing token", http.MethodGet, "/read", "", false, http.StatusUnauthorized},
		{"malformed header", http.MethodGet, "/read", "Token good", false, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/read", "Bearer nope", false, http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/read", "Bearer good", false, http.StatusOK},
		{"query token on websocket upgrade", http.MethodGet, "/read?token=good", "", true, http.StatusOK},
		{"query token ignored on plain GET", http.MethodGet, "/read?token=good", "", false, http.StatusUnauthorized},
		{"query token ignored on POST", http.MethodPost, "/generate?token=good", "", true, http.StatusUnauthorized},
		{"role not allowed", http.MethodPost, "/approve", "Bearer good", false, http.StatusForbidden},
		{"role allowed", http.MethodPost, "/generate", "Bearer good", false, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()

	router := gin.New()
	router.Use(Metrics(metrics, "/metrics"))
	router.GET("/timetables/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/timetables/a", "/timetables/b", "/metrics", "/nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for the template, one for unmatched paths")
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	claims := &models.JWTClaims{UserID: "u-9", Role: models.RoleAdmin}

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(ContextUserKey, claims) })
	router.POST("/timetables/:id/approve", Audit(zap.New(core), "timetable.approve"), func(c *gin.Context) {
		if c.Param("id") == "bad" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, id := range []string{"tt-1", "bad"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timetables/"+id+"/approve", nil))
	}

	entries := logs.FilterMessage("timetable.approve").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "u-9", fields["actor_id"])
	assert.Equal(t, "admin", fields["role"])
	assert.Equal(t, "tt-1", fields["timetable_id"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}
