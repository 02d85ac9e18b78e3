package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionFor_StablePerConversation(t *testing.T) {
	wp := NewWorkerPool(4)

	first := wp.partitionFor("conv-abc")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, wp.partitionFor("conv-abc"),
			"a conversation must always hash to the same partition")
	}
	require.GreaterOrEqual(t, first, 0)
	require.Less(t, first, 4)
}

func TestMetricsHandler(t *testing.T) {
	wp := NewWorkerPool(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	wp.MetricsHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var metrics map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	require.Equal(t, float64(2), metrics["active_workers"])
	require.Contains(t, metrics, "events_published")
	require.Contains(t, metrics, "events_dropped")
}
