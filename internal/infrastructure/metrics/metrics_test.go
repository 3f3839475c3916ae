package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PlanRuns.WithLabelValues("succeeded"))
	IncPlanRun("succeeded")
	assert.Equal(t, before+1, testutil.ToFloat64(PlanRuns.WithLabelValues("succeeded")))

	before = testutil.ToFloat64(StaticFindings.WithLabelValues("warning"))
	AddStaticFindings("warning", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(StaticFindings.WithLabelValues("warning")))
}

func TestObserveHTTPRequest(t *testing.T) {
	errsBefore := testutil.ToFloat64(HTTPErrors.WithLabelValues("POST", "/generate", "500"))
	reqBefore := testutil.ToFloat64(HTTPRequests.WithLabelValues("POST", "/generate"))

	ObserveHTTPRequest("POST", "/generate", "200", 10*time.Millisecond, false)
	ObserveHTTPRequest("POST", "/generate", "500", 10*time.Millisecond, true)

	assert.Equal(t, reqBefore+2, testutil.ToFloat64(HTTPRequests.WithLabelValues("POST", "/generate")))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(HTTPErrors.WithLabelValues("POST", "/generate", "500")))
}
