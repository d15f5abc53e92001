package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveToolCounts(t *testing.T) {
	before := testutil.ToFloat64(toolCalls.WithLabelValues("load_business_profile", OutcomeOK))

	ObserveTool("load_business_profile", OutcomeOK, 3*time.Millisecond)
	ObserveTool("load_business_profile", OutcomeOK, 5*time.Millisecond)

	after := testutil.ToFloat64(toolCalls.WithLabelValues("load_business_profile", OutcomeOK))
	assert.Equal(t, before+2, after)
}

func TestObserveStoreCounts(t *testing.T) {
	before := testutil.ToFloat64(storeOps.WithLabelValues("memory", "update", OutcomeConflict))
	ObserveStore("memory", "update", OutcomeConflict, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(storeOps.WithLabelValues("memory", "update", OutcomeConflict)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ProfileCompleted()
	RateLimited()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "onboard_profiles_completed_total")
	assert.Contains(t, string(body), "onboard_http_rate_limited_total")
	assert.Contains(t, string(body), "go_goroutines")
}
