package metrics

import "testing"

// BenchmarkCollector_KnockSent measures the overhead of recording a
// knock (atomic counter plus per-port map update).
func BenchmarkCollector_KnockSent(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.KnockSent(uint16(i % 3))
	}
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New()
	c.KnockSent(5000)
	c.KnockSent(6000)
	c.RecordError("test")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}

// BenchmarkNilCollector verifies nil-safe no-ops have zero overhead.
func BenchmarkNilCollector(b *testing.B) {
	var c *Collector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.KnockSent(5000)
		c.RunStarted()
	}
}
