// Package gridcfg is the ambient config layer of spec §6's "Environment"
// table: a process-wide, read-mostly snapshot parsed from the environment
// once at startup. Grounded on cmn/rom.go's readMostly singleton (a
// package-level struct populated once, read lock-free afterward), adapted
// from cluster-config-driven fields to GRID_*-prefixed environment
// variables.
package gridcfg

import (
	"os"
	"strconv"
)

type readMostly struct {
	printErrors    bool
	printStats     bool
	statsAddr      string
	appName        string
	hostname       string
}

var Rom readMostly

func init() { Rom.load() }

func (r *readMostly) load() {
	r.printErrors = envSet("GRID_PRINT_ERRORS")
	r.printStats = envSet("GRID_PRINT_STATISTICS")
	r.statsAddr = os.Getenv("GRID_STATISTICS_SOCKET")
	r.appName = os.Getenv("GRID_APPLICATION_NAME")
	r.hostname = os.Getenv("GRID_HOSTNAME")
	if r.hostname == "" {
		r.hostname, _ = os.Hostname()
	}
}

func envSet(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && v != ""
}

func (r *readMostly) PrintErrors() bool    { return r.printErrors }
func (r *readMostly) PrintStatistics() bool { return r.printStats }
func (r *readMostly) StatisticsSocket() string { return r.statsAddr }
func (r *readMostly) ApplicationName() string  { return r.appName }
func (r *readMostly) Hostname() string         { return r.hostname }

// ParseDurationMS parses a millisecond count from a setsockopt-style byte
// value's decimal string form, returning def when s is empty or not a
// number. No socket-option setter calls it at present.
func ParseDurationMS(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
