package status

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/omnifs/omnifs/pkg/health"
	"github.com/stretchr/testify/require"
)

func TestStartCompleteMovesToHistory(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	id := tr.Start("file_create")
	require.Equal(t, 1, tr.ActiveCount())

	tr.Complete(id)
	require.Equal(t, 0, tr.ActiveCount())

	hist := tr.History(1)
	require.Len(t, hist, 1)
	require.Equal(t, Completed, hist[0].Outcome)
	require.Equal(t, "file_create", hist[0].Type)
}

func TestFailRecordsError(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	id := tr.Start("file_read")
	tr.Fail(id, errors.New("not found"))

	hist := tr.History(1)
	require.Len(t, hist, 1)
	require.Equal(t, Failed, hist[0].Outcome)
	require.Equal(t, "not found", hist[0].Error)
}

func TestHistoryRespectsMaxSize(t *testing.T) {
	tr := NewTracker(Config{MaxHistory: 2})
	for i := 0; i < 5; i++ {
		tr.Complete(tr.Start("op"))
	}
	require.Len(t, tr.History(0), 2)
}

func TestSnapshotIncludesHealth(t *testing.T) {
	ht := health.NewTracker(health.DefaultConfig())
	ht.Register("container")
	tr := NewTracker(Config{HealthTracker: ht})

	snap := tr.Snapshot()
	require.Equal(t, "healthy", snap.Health)
}

func TestHandlerServesJSON(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.Complete(tr.Start("dir_list"))

	req := httptest.NewRequest("GET", "/statusz", nil)
	rec := httptest.NewRecorder()
	tr.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var decoded SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded.RecentOps, 1)
}
