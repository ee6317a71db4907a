package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPUPercent(t *testing.T) {
	s := &Stats{
		CPUUsage:        2_000_000,
		PrevCPUUsage:    1_000_000,
		SystemUsage:     20_000_000,
		PrevSystemUsage: 10_000_000,
	}
	assert.InDelta(t, 10.0, CPUPercent(s), 0.001)
}

func TestCPUPercent_ZeroSystemDelta(t *testing.T) {
	s := &Stats{
		CPUUsage:        2_000_000,
		PrevCPUUsage:    1_000_000,
		SystemUsage:     10_000_000,
		PrevSystemUsage: 10_000_000,
	}
	assert.Equal(t, 0.0, CPUPercent(s))
}

func TestCPUPercent_CounterReset(t *testing.T) {
	// Cumulative counters restart from zero after a container restart.
	s := &Stats{
		CPUUsage:        500,
		PrevCPUUsage:    1_000_000,
		SystemUsage:     1_000,
		PrevSystemUsage: 10_000_000,
	}
	assert.Equal(t, 0.0, CPUPercent(s))
}

func TestCPUPercent_Nil(t *testing.T) {
	assert.Equal(t, 0.0, CPUPercent(nil))
}

func TestMemoryPercent(t *testing.T) {
	s := &Stats{MemoryUsage: 512 << 20, MemoryLimit: 1024 << 20}
	assert.InDelta(t, 50.0, MemoryPercent(s), 0.001)
}

func TestMemoryPercent_ZeroLimit(t *testing.T) {
	s := &Stats{MemoryUsage: 512 << 20, MemoryLimit: 0}
	assert.Equal(t, 0.0, MemoryPercent(s))
}

func TestParseState(t *testing.T) {
	assert.Equal(t, StateRunning, ParseState("running"))
	assert.Equal(t, StateExited, ParseState("exited"))
	assert.Equal(t, StatePaused, ParseState("paused"))
	assert.Equal(t, StateRestarting, ParseState("restarting"))
	assert.Equal(t, StateCreated, ParseState("created"))
	assert.Equal(t, StateDead, ParseState("dead"))
	assert.Equal(t, StateDead, ParseState("removing"))
	assert.Equal(t, StateDead, ParseState(""))
}
