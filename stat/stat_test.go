package stat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIncAccumulatesCounter(t *testing.T) {
	tr := NewTracker("sock1", "host1", "app1")
	tr.Inc("CURRENT_EP_ERRORS", 1)
	tr.Inc("CURRENT_EP_ERRORS", 2)

	b, err := tr.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"CURRENT_EP_ERRORS":3}`, string(b))
}

func TestSetOverwritesLevel(t *testing.T) {
	tr := NewTracker("sock1", "host1", "app1")
	tr.Set("BYTES_SENT", 100)
	tr.Set("BYTES_SENT", 42)

	b, err := tr.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"BYTES_SENT":42}`, string(b))
}

func TestFormatESTPIncludesCounterSuffix(t *testing.T) {
	tr := NewTracker("mysock", "myhost", "myapp")
	tr.Inc("CURRENT_EP_ERRORS", 5)
	tr.Set("BYTES_SENT", 10)

	line := tr.FormatESTP(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.Contains(t, line, "ESTP:myhost:myapp:socket.mysock:CURRENT_EP_ERRORS: 2026-01-02T03:04:05Z 10 5:c")
	require.Contains(t, line, "ESTP:myhost:myapp:socket.mysock:BYTES_SENT: 2026-01-02T03:04:05Z 10 10\n")
}

func TestRegistryExposesRegisteredGauges(t *testing.T) {
	tr := NewTracker("s", "h", "a")
	tr.Inc("X", 1)
	mfs, err := tr.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	require.Equal(t, "gridmq_X", mfs[0].GetName())
}
