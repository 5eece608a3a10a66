package gridlog

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWritesLogFileUnderDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	SetVerbose(true)
	Infof("hello %s", "world")

	name := filepath.Join(dir, "gridmq."+strconv.Itoa(os.Getpid())+".log")
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(b), "hello world")
	require.Equal(t, byte('I'), b[0])
}

func TestInitEmptyDirIsANoop(t *testing.T) {
	require.NoError(t, Init(""))
}

func TestSetVerboseFalseSuppressesInfo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	SetVerbose(false)
	Infof("should not appear")
	Warnf("should appear")

	name := filepath.Join(dir, "gridmq."+strconv.Itoa(os.Getpid())+".log")
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.NotContains(t, string(b), "should not appear")
	require.Contains(t, string(b), "should appear")
}
