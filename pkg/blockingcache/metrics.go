package blockingcache

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the approximate BlockingCache counters as prometheus
// counters, so a cache simulation embedded in a larger service can be
// scraped the same way the rest of that service's subsystems are.
type Metrics struct {
	castouts        prometheus.Counter
	reloads         prometheus.Counter
	reads           prometheus.Counter
	writes          prometheus.Counter
	readMisses      prometheus.Counter
	writeMisses     prometheus.Counter
	nextLevelWrites prometheus.Counter
	getLineMisses   prometheus.Counter
}

// NewMetrics registers the eight counters under the given label with reg.
// Passing a nil reg disables metrics entirely; Observe then becomes a
// no-op.
func NewMetrics(reg prometheus.Registerer, label string) *Metrics {
	if reg == nil {
		return nil
	}
	mk := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cachesim",
			Subsystem:   "blockingcache",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"cache": label},
		})
		reg.MustRegister(c)
		return c
	}
	return &Metrics{
		castouts:        mk("castouts_total", "Number of dirty-line castouts."),
		reloads:         mk("reloads_total", "Number of lines reloaded from the next level."),
		reads:           mk("reads_total", "Number of read operations."),
		writes:          mk("writes_total", "Number of write operations."),
		readMisses:      mk("read_misses_total", "Number of read misses."),
		writeMisses:     mk("write_misses_total", "Number of write misses."),
		nextLevelWrites: mk("next_level_writes_total", "Number of writes propagated to the next level."),
		getLineMisses:   mk("get_line_misses_total", "Number of forced-allocation misses."),
	}
}

// Observe pushes a Stats snapshot's deltas into the registered counters.
// Callers are expected to call it with the delta since the last
// observation (e.g. by diffing two Stats snapshots), since prometheus
// counters are monotonic.
func (m *Metrics) Observe(delta Stats) {
	if m == nil {
		return
	}
	m.castouts.Add(float64(delta.Castouts))
	m.reloads.Add(float64(delta.Reloads))
	m.reads.Add(float64(delta.Reads))
	m.writes.Add(float64(delta.Writes))
	m.readMisses.Add(float64(delta.ReadMisses))
	m.writeMisses.Add(float64(delta.WriteMisses))
	m.nextLevelWrites.Add(float64(delta.NextLevelWrites))
	m.getLineMisses.Add(float64(delta.GetLineMisses))
}
