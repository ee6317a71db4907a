package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orchardhq/orchard/internal/model"
	"github.com/orchardhq/orchard/internal/runtime"
)

// RuntimeConfig carries the container provisioning defaults.
type RuntimeConfig struct {
	Image   string
	Network string
	// AppPort is the port the application listens on inside the container.
	AppPort int
	// DatabaseHost/User/Password are the shared Postgres server the
	// instance containers connect to.
	DatabaseHost     string
	DatabaseUser     string
	DatabasePassword string
}

// Runtime contains activities that drive the container engine.
type Runtime struct {
	rt     runtime.Runtime
	cfg    RuntimeConfig
	logger zerolog.Logger
}

// NewRuntime creates a new Runtime activity struct.
func NewRuntime(rt runtime.Runtime, cfg RuntimeConfig, logger zerolog.Logger) *Runtime {
	if cfg.AppPort == 0 {
		cfg.AppPort = 8069
	}
	return &Runtime{
		rt:     rt,
		cfg:    cfg,
		logger: logger.With().Str("component", "runtime-activity").Logger(),
	}
}

// DataVolumeName returns the named volume holding an instance's app data.
func DataVolumeName(containerName string) string {
	return containerName + "_data"
}

// EnsureVolume creates the named volume. Creating an existing volume is a
// no-op at the engine level.
func (a *Runtime) EnsureVolume(ctx context.Context, name string) error {
	return a.rt.CreateVolume(ctx, name)
}

// RemoveVolume removes the named volume. A missing volume is not an error.
func (a *Runtime) RemoveVolume(ctx context.Context, name string) error {
	err := a.rt.RemoveVolume(ctx, name)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil
	}
	return err
}

// CreateContainerParams holds the parameters for CreateContainer.
// AdminPassword is injected into the container environment and never
// persisted anywhere in plaintext.
type CreateContainerParams struct {
	Instance      model.Instance `json:"instance"`
	AdminPassword string         `json:"admin_password"`
}

// CreateContainer creates the instance's container with its published
// port, resource limits, data volume and database environment. Returns
// the engine's container ID.
func (a *Runtime) CreateContainer(ctx context.Context, params CreateContainerParams) (string, error) {
	i := params.Instance
	a.logger.Info().Str("instance", i.ID).Str("container", i.ContainerName).Int("port", i.Port).Msg("creating container")

	spec := runtime.ContainerSpec{
		Name:    i.ContainerName,
		Image:   fmt.Sprintf("%s:%s", a.cfg.Image, i.Version),
		AppPort: a.cfg.AppPort,
		Port:    i.Port,
		Env: []string{
			"HOST=" + a.cfg.DatabaseHost,
			"USER=" + a.cfg.DatabaseUser,
			"PASSWORD=" + a.cfg.DatabasePassword,
			"DB_NAME=" + i.DatabaseName,
			"ADMIN_PASSWD=" + params.AdminPassword,
		},
		Network:       a.cfg.Network,
		CPULimit:      i.CPULimit,
		MemoryLimitMB: i.MemoryLimitMB,
		Volumes: map[string]string{
			DataVolumeName(i.ContainerName): "/var/lib/odoo",
		},
	}
	return a.rt.Create(ctx, spec)
}

// StartContainer starts the container.
func (a *Runtime) StartContainer(ctx context.Context, containerID string) error {
	return a.rt.Start(ctx, containerID)
}

// StopContainer stops the container with the engine's grace period.
func (a *Runtime) StopContainer(ctx context.Context, containerID string) error {
	return a.rt.Stop(ctx, containerID)
}

// RestartContainer restarts the container.
func (a *Runtime) RestartContainer(ctx context.Context, containerID string) error {
	return a.rt.Restart(ctx, containerID)
}

// RemoveContainer stops and removes the container. A container already
// gone from the engine is not an error; deletion must converge regardless.
func (a *Runtime) RemoveContainer(ctx context.Context, containerID string) error {
	if err := a.rt.Stop(ctx, containerID); err != nil && !errors.Is(err, runtime.ErrNotFound) {
		a.logger.Warn().Err(err).Str("container", containerID).Msg("stop before remove failed")
	}
	err := a.rt.Remove(ctx, containerID)
	if errors.Is(err, runtime.ErrNotFound) {
		a.logger.Info().Str("container", containerID).Msg("container already gone")
		return nil
	}
	return err
}

// InspectResult is the observation returned by InspectContainer.
type InspectResult struct {
	Found bool   `json:"found"`
	State string `json:"state,omitempty"`
}

// InspectContainer reports the container's engine state. A missing
// container is an observation, not a failure.
func (a *Runtime) InspectContainer(ctx context.Context, containerID string) (*InspectResult, error) {
	state, err := a.rt.Inspect(ctx, containerID)
	if errors.Is(err, runtime.ErrNotFound) {
		return &InspectResult{Found: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &InspectResult{Found: true, State: string(state)}, nil
}
