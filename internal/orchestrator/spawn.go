package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Spawner starts the game client without waiting for it.
type Spawner interface {
	Spawn(ctx context.Context, path string, args []string, dir string) (int, error)
}

type ExecSpawner struct{}

func (ExecSpawner) Spawn(ctx context.Context, path string, args []string, dir string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start client: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// clientArgs expands {server}, {host} and {port} in the configured arguments.
func clientArgs(tmpl []string, name, host string, port int) []string {
	r := strings.NewReplacer("{server}", name, "{host}", host, "{port}", strconv.Itoa(port))
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = r.Replace(a)
	}
	return out
}
