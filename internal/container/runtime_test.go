// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	attachedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunAttached(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if m.attachedFunc != nil {
		return m.attachedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "docker image exists",
			mkRT: func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmds: map[string]bool{"docker image inspect pandoc/core:latest": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantErr: true,
		},
		{
			name: "podman image exists",
			mkRT: func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			cmds: map[string]bool{"podman image exists pandoc/core:latest": true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mkRT(&mockExecutor{runnableCmds: tt.cmds})
			err := rt.ImageExists(context.Background(), "pandoc/core:latest")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "pandoc/core:latest")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	var gotName string
	var gotArgs []string
	exec := &mockExecutor{
		attachedFunc: func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
			gotName, gotArgs = name, args
			_, _ = io.WriteString(stdout, "ok")
			return nil
		},
	}
	rt := newPodmanRuntime(exec)

	var out bytes.Buffer
	err := rt.Run(context.Background(), RunSpec{
		Image:   "pandoc/core:latest",
		Args:    []string{"wing-public-api.md", "-o", "wing-public-api.docx"},
		Mounts:  []Mount{{Source: "/home/u/proj", Target: "/data"}},
		WorkDir: "/data",
		User:    "1000:1000",
		Stdout:  &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "podman", gotName)
	assert.Equal(t, []string{
		"run", "--rm",
		"-v", "/home/u/proj:/data",
		"-w", "/data",
		"--user", "1000:1000",
		"pandoc/core:latest",
		"wing-public-api.md", "-o", "wing-public-api.docx",
	}, gotArgs)
	assert.Equal(t, "ok", out.String())
}

func TestRun_Error(t *testing.T) {
	exec := &mockExecutor{
		attachedFunc: func(string, []string, io.Reader, io.Writer, io.Writer) error {
			return errors.New("exit status 64")
		},
	}
	err := newDockerRuntime(exec).Run(context.Background(), RunSpec{Image: "pandoc/core:latest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running docker container pandoc/core:latest")
	assert.Contains(t, err.Error(), "exit status 64")
}

func TestRunArgs_StdinAndReadOnlyMount(t *testing.T) {
	args := runArgs(RunSpec{
		Image:  "img",
		Stdin:  strings.NewReader("x"),
		Mounts: []Mount{{Source: "/a", Target: "/b", ReadOnly: true}},
	})
	assert.Equal(t, []string{"run", "--rm", "-i", "-v", "/a:/b:ro", "img"}, args)
}

func TestPull(t *testing.T) {
	exec := &mockExecutor{}
	require.NoError(t, newDockerRuntime(exec).Pull(context.Background(), "pandoc/core:latest", io.Discard))
	assert.Equal(t, []string{"docker pull pandoc/core:latest"}, exec.calls)
}
