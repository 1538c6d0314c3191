package health

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordErrorTransitionsThresholds(t *testing.T) {
	tr := NewTracker(Config{DegradedThreshold: 2, UnavailableThreshold: 4})
	tr.Register("container")
	require.Equal(t, Healthy, tr.State("container"))

	tr.RecordError("container", errors.New("io"))
	require.Equal(t, Healthy, tr.State("container"))
	tr.RecordError("container", errors.New("io"))
	require.Equal(t, Degraded, tr.State("container"))
	tr.RecordError("container", errors.New("io"))
	tr.RecordError("container", errors.New("io"))
	require.Equal(t, Unavailable, tr.State("container"))
}

func TestRecordSuccessRecoversToHealthy(t *testing.T) {
	tr := NewTracker(Config{DegradedThreshold: 1, UnavailableThreshold: 2})
	tr.Register("container")
	tr.RecordError("container", errors.New("io"))
	require.Equal(t, Degraded, tr.State("container"))

	tr.RecordSuccess("container")
	require.Equal(t, Healthy, tr.State("container"))
}

func TestOverallIsWorstComponent(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.Register("container")
	tr.Register("queue")
	tr.RecordError("queue", errors.New("stuck"))
	for i := 0; i < 10; i++ {
		tr.RecordError("queue", errors.New("stuck"))
	}
	require.Equal(t, Unavailable, tr.Overall())
}

func TestHandlerReports503WhenUnavailable(t *testing.T) {
	tr := NewTracker(Config{DegradedThreshold: 1, UnavailableThreshold: 1})
	tr.Register("container")
	tr.RecordError("container", errors.New("wedged"))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	tr.Handler().ServeHTTP(rec, req)

	require.Equal(t, 503, rec.Code)
	var decoded report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Equal(t, "unavailable", decoded.Overall)
}
