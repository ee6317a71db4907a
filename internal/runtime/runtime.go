package runtime

import (
	"context"
	"errors"
)

// State is the closed set of container states the platform understands.
// Engine state strings are mapped onto it at the adapter boundary; anything
// the platform has no notion of becomes StateDead so it surfaces as an
// error during reconciliation instead of being silently ignored.
type State string

const (
	StateCreated    State = "created"
	StateRunning    State = "running"
	StateRestarting State = "restarting"
	StatePaused     State = "paused"
	StateExited     State = "exited"
	StateDead       State = "dead"
)

// ParseState maps a raw engine state string to the closed State set.
func ParseState(s string) State {
	switch State(s) {
	case StateCreated, StateRunning, StateRestarting, StatePaused, StateExited, StateDead:
		return State(s)
	default:
		return StateDead
	}
}

// ErrUnavailable indicates the container engine itself could not be
// reached. Distinct from ErrNotFound, which is non-fatal on delete and
// reconcile paths.
var ErrUnavailable = errors.New("container runtime unavailable")

// ErrNotFound indicates the referenced container or volume does not exist
// in the engine.
var ErrNotFound = errors.New("container not found")

// ContainerSpec describes the container to create for an instance.
type ContainerSpec struct {
	Name          string
	Image         string
	// AppPort is the port the application listens on inside the container;
	// Port is the host port it is published to.
	AppPort       int
	Port          int
	Env           []string
	Network       string
	CPULimit      float64
	MemoryLimitMB int64
	// Volumes maps named volume to its mount path inside the container.
	Volumes map[string]string
}

// Stats holds two consecutive cumulative usage samples plus memory and
// network counters, as reported by the engine in a single read.
type Stats struct {
	CPUUsage        uint64
	PrevCPUUsage    uint64
	SystemUsage     uint64
	PrevSystemUsage uint64
	MemoryUsage     uint64
	MemoryLimit     uint64
	RxBytes         uint64
	TxBytes         uint64
}

// Runtime is the capability interface over the container engine. All
// operations return ErrUnavailable when the engine cannot be reached and
// ErrNotFound when the handle does not resolve to a container.
type Runtime interface {
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, containerID string) error
	Stop(ctx context.Context, containerID string) error
	Restart(ctx context.Context, containerID string) error
	Remove(ctx context.Context, containerID string) error
	Inspect(ctx context.Context, containerID string) (State, error)
	Stats(ctx context.Context, containerID string) (*Stats, error)
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error
}
