package gridcfg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDurationMSFallsBackOnEmptyOrInvalid(t *testing.T) {
	require.Equal(t, int64(500), ParseDurationMS("", 500))
	require.Equal(t, int64(500), ParseDurationMS("not-a-number", 500))
	require.Equal(t, int64(250), ParseDurationMS("250", 500))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("GRID_PRINT_ERRORS", "1")
	t.Setenv("GRID_PRINT_STATISTICS", "")
	t.Setenv("GRID_STATISTICS_SOCKET", "tcp://127.0.0.1:9000")
	t.Setenv("GRID_APPLICATION_NAME", "testapp")
	t.Setenv("GRID_HOSTNAME", "testhost")

	var r readMostly
	r.load()

	require.True(t, r.PrintErrors())
	require.False(t, r.PrintStatistics(), "empty string value should count as unset")
	require.Equal(t, "tcp://127.0.0.1:9000", r.StatisticsSocket())
	require.Equal(t, "testapp", r.ApplicationName())
	require.Equal(t, "testhost", r.Hostname())
}

func TestLoadFallsBackToOSHostnameWhenUnset(t *testing.T) {
	t.Setenv("GRID_HOSTNAME", "")

	var r readMostly
	r.load()
	require.NotEmpty(t, r.Hostname())
}
