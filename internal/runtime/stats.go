package runtime

// CPUPercent computes CPU usage from two consecutive cumulative samples.
// Returns 0 when the system delta is zero (first sample after start, or a
// stopped container) rather than dividing by zero.
func CPUPercent(s *Stats) float64 {
	if s == nil {
		return 0
	}
	if s.SystemUsage <= s.PrevSystemUsage || s.CPUUsage < s.PrevCPUUsage {
		return 0
	}
	cpuDelta := float64(s.CPUUsage - s.PrevCPUUsage)
	systemDelta := float64(s.SystemUsage - s.PrevSystemUsage)
	if systemDelta == 0 {
		return 0
	}
	return cpuDelta / systemDelta * 100.0
}

// MemoryPercent computes memory usage against the limit, guarded against a
// zero or absent limit.
func MemoryPercent(s *Stats) float64 {
	if s == nil || s.MemoryLimit == 0 {
		return 0
	}
	return float64(s.MemoryUsage) / float64(s.MemoryLimit) * 100.0
}
