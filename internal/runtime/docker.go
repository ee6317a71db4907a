package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"
)

const (
	// callTimeout bounds every engine call so a wedged daemon surfaces as
	// a failure instead of hanging the operation.
	callTimeout = 30 * time.Second

	// stopGraceSecs is how long the engine waits after SIGTERM before
	// killing the container.
	stopGraceSecs = 15
)

// DockerRuntime implements Runtime against the Docker Engine API.
type DockerRuntime struct {
	cli    *client.Client
	logger zerolog.Logger
}

// NewDockerRuntime connects to the engine using the standard environment
// (DOCKER_HOST etc.) with API version negotiation.
func NewDockerRuntime(logger zerolog.Logger) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker engine: %w", err)
	}
	return &DockerRuntime{
		cli:    cli,
		logger: logger.With().Str("component", "docker-runtime").Logger(),
	}, nil
}

// Close releases the engine client connection.
func (r *DockerRuntime) Close() error {
	return r.cli.Close()
}

// mapErr translates engine errors into the adapter's error taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %s", op, ErrNotFound, err)
	}
	if client.IsErrConnectionFailed(err) {
		return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *DockerRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	appPort, err := nat.NewPort("tcp", strconv.Itoa(spec.AppPort))
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	mounts := make([]mount.Mount, 0, len(spec.Volumes))
	for name, target := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: name,
			Target: target,
		})
	}

	cfg := &container.Config{
		Image: spec.Image,
		Env:   spec.Env,
		ExposedPorts: nat.PortSet{
			appPort: struct{}{},
		},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			appPort: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: strconv.Itoa(spec.Port)}},
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Resources: container.Resources{
			NanoCPUs: int64(spec.CPULimit * 1e9),
			Memory:   spec.MemoryLimitMB << 20,
		},
		Mounts: mounts,
	}
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	r.logger.Info().Str("name", spec.Name).Str("image", spec.Image).Int("port", spec.Port).Msg("creating container")

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return "", mapErr("create container", err)
	}
	return resp.ID, nil
}

func (r *DockerRuntime) Start(ctx context.Context, containerID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return mapErr("start container", r.cli.ContainerStart(ctx, containerID, container.StartOptions{}))
}

func (r *DockerRuntime) Stop(ctx context.Context, containerID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout+stopGraceSecs*time.Second)
	defer cancel()
	grace := stopGraceSecs
	return mapErr("stop container", r.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &grace}))
}

func (r *DockerRuntime) Restart(ctx context.Context, containerID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout+stopGraceSecs*time.Second)
	defer cancel()
	grace := stopGraceSecs
	return mapErr("restart container", r.cli.ContainerRestart(ctx, containerID, container.StopOptions{Timeout: &grace}))
}

func (r *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return mapErr("remove container", r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}))
}

func (r *DockerRuntime) Inspect(ctx context.Context, containerID string) (State, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	info, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return StateDead, mapErr("inspect container", err)
	}
	if info.State == nil {
		return StateDead, nil
	}
	return ParseState(info.State.Status), nil
}

func (r *DockerRuntime) Stats(ctx context.Context, containerID string) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := r.cli.ContainerStats(ctx, containerID, false)
	if err != nil {
		return nil, mapErr("container stats", err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode container stats: %w", err)
	}

	stats := &Stats{
		CPUUsage:        raw.CPUStats.CPUUsage.TotalUsage,
		PrevCPUUsage:    raw.PreCPUStats.CPUUsage.TotalUsage,
		SystemUsage:     raw.CPUStats.SystemUsage,
		PrevSystemUsage: raw.PreCPUStats.SystemUsage,
		MemoryUsage:     raw.MemoryStats.Usage,
		MemoryLimit:     raw.MemoryStats.Limit,
	}
	if eth0, ok := raw.Networks["eth0"]; ok {
		stats.RxBytes = eth0.RxBytes
		stats.TxBytes = eth0.TxBytes
	}
	return stats, nil
}

func (r *DockerRuntime) CreateVolume(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := r.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	return mapErr("create volume", err)
}

func (r *DockerRuntime) RemoveVolume(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return mapErr("remove volume", r.cli.VolumeRemove(ctx, name, true))
}
