package locker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelpoint/lockerd/internal/winnsen"
)

func TestOperationResultJSONReportsMilliseconds(t *testing.T) {
	r := successResult(0, 5, winnsen.StatusOpen, 1500*time.Millisecond)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1500), decoded["response_time_ms"])
}

func TestFailureResultCarriesElapsedMilliseconds(t *testing.T) {
	r := failureResult(0, 3, ErrResponseTimeout, 2*time.Second)

	assert.Equal(t, 2*time.Second, r.ResponseTime)
	assert.Equal(t, int64(2000), r.ResponseTimeMs)
	assert.Equal(t, winnsen.StatusUnknown.String(), r.StatusName)
}
