// Package stat is the L13 statistics/ESTP exporter of spec §6: a tracker of
// named counters/levels, marshaled to JSON and formatted as ESTP lines, with
// a parallel Prometheus registry. Grounded on stats/common_statsd.go's
// coreStats Tracker map (kind + label + atomic Value) and
// stats/target_stats.go's JSON-marshal-the-tracker idiom, generalized from
// aistore's StatsD-or-Prometheus build-tag split to gridmq always exposing
// both ESTP text and a Prometheus registry.
package stat

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
)

// Kind distinguishes an ESTP counter (suffix ":c") from a level (no suffix).
type Kind int

const (
	KindCounter Kind = iota
	KindLevel
)

type value struct {
	kind Kind
	v    atomic.Int64
}

// Tracker holds a socket's named statistics (spec.md's per-socket
// CURRENT_EP_ERRORS and friends), exported both as ESTP lines and as
// Prometheus metrics.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*value
	promVec map[string]prometheus.Gauge
	reg     *prometheus.Registry

	socketName string
	host       string
	app        string
}

func NewTracker(socketName, host, app string) *Tracker {
	return &Tracker{
		entries: make(map[string]*value),
		promVec: make(map[string]prometheus.Gauge),
		reg:     prometheus.NewRegistry(),
		socketName: socketName,
		host:       host,
		app:        app,
	}
}

func (t *Tracker) get(name string, kind Kind) *value {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[name]
	if !ok {
		v = &value{kind: kind}
		t.entries[name] = v
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridmq_" + sanitize(name),
			Help: "gridmq socket statistic " + name,
		})
		t.reg.MustRegister(g)
		t.promVec[name] = g
	}
	return v
}

func sanitize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			b[i] = '_'
		}
	}
	return string(b)
}

// Inc adds delta to a counter metric (e.g. CURRENT_EP_ERRORS).
func (t *Tracker) Inc(name string, delta int64) {
	v := t.get(name, KindCounter)
	nv := v.v.Add(delta)
	t.mu.Lock()
	g := t.promVec[name]
	t.mu.Unlock()
	g.Set(float64(nv))
}

// Set overwrites a level metric.
func (t *Tracker) Set(name string, val int64) {
	v := t.get(name, KindLevel)
	v.v.Store(val)
	t.mu.Lock()
	g := t.promVec[name]
	t.mu.Unlock()
	g.Set(float64(val))
}

// Registry exposes the Prometheus registry for an HTTP /metrics handler.
func (t *Tracker) Registry() *prometheus.Registry { return t.reg }

// snapshot is the JSON shape jsoniter marshals, mirroring
// coreStats.Tracker's map-of-name-to-value JSON encoding.
type snapshot map[string]int64

// MarshalJSON dumps the current tracker values, exactly as
// coreStats.MarshalJSON serializes its Tracker map.
func (t *Tracker) MarshalJSON() ([]byte, error) {
	t.mu.Lock()
	snap := make(snapshot, len(t.entries))
	for k, v := range t.entries {
		snap[k] = v.v.Load()
	}
	t.mu.Unlock()
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(snap)
}

// FormatESTP renders every tracked metric as one ESTP line per spec §6:
// `ESTP:<host>:<app>:socket.<name>:<metric>: <timestamp>Z 10 <value><suffix>`.
// Uses a growable bytes.Buffer rather than a fixed stack buffer (spec.md
// §9's buffer-sizing note), since the number of tracked metrics is
// open-ended.
func (t *Tracker) FormatESTP(now time.Time) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var buf bytes.Buffer
	ts := now.UTC().Format("2006-01-02T15:04:05")
	for name, v := range t.entries {
		suffix := ""
		if v.kind == KindCounter {
			suffix = ":c"
		}
		fmt.Fprintf(&buf, "ESTP:%s:%s:socket.%s:%s: %sZ 10 %d%s\n",
			t.host, t.app, t.socketName, name, ts, v.v.Load(), suffix)
	}
	return buf.String()
}
