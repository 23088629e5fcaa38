package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics("Academia", "api")

	m.ObserveAPI(http.MethodGet, "/api/sparks", http.StatusOK, time.Millisecond)
	m.ObserveAPI(http.MethodPost, "/api/sparks", http.StatusBadRequest, time.Millisecond)
	m.TokenIssued("tutor", 15*time.Minute)
	m.TokenIssued("tutor", time.Hour)
	m.SocialPostInc("spark")
	m.UpstreamErrorInc("sessions")
	m.UpstreamTimer("sessions").ObserveDuration()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiErrorCounter.WithLabelValues(http.MethodPost, "/api/sparks", "400")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("tutor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.socialPosts.WithLabelValues("spark")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamErrors.WithLabelValues("sessions")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "academia_api_voice_tokens_issued")
}
