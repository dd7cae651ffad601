// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/readme-export/internal/container"
	"github.com/pdiddy/readme-export/pkg/types"
)

// containerWorkDir is where the working directory is mounted inside the
// pandoc container.
const containerWorkDir = "/data"

// PandocConverter runs pandoc in a container with the directory holding the
// Markdown file mounted at /data.
type PandocConverter struct {
	// Image is the pandoc image. Defaults to pandoc/core:latest.
	Image string

	// Runtime runs the container. When nil, docker or podman is detected on
	// first use.
	Runtime container.Runtime

	// Progress receives image pull output and pandoc diagnostics.
	Progress io.Writer
}

// Convert implements DocxConverter. docxPath must lie in the directory of
// mdPath or below it.
func (p *PandocConverter) Convert(ctx context.Context, mdPath, docxPath string) error {
	image := p.Image
	if image == "" {
		image = types.DefaultPandocImage
	}
	progress := p.Progress
	if progress == nil {
		progress = io.Discard
	}

	args, mountDir, err := pandocArgs(mdPath, docxPath)
	if err != nil {
		return err
	}

	rt := p.Runtime
	if rt == nil {
		if rt, err = container.DetectRuntime(ctx); err != nil {
			return fmt.Errorf("pandoc backend: %w", err)
		}
		p.Runtime = rt
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		fmt.Fprintf(progress, "pulling %s with %s\n", image, rt.Name())
		if err := rt.Pull(ctx, image, progress); err != nil {
			return fmt.Errorf("pandoc backend: %w", err)
		}
	}

	err = rt.Run(ctx, container.RunSpec{
		Image:   image,
		Args:    args,
		Mounts:  []container.Mount{{Source: mountDir, Target: containerWorkDir}},
		WorkDir: containerWorkDir,
		User:    hostUser(),
		Stdout:  progress,
		Stderr:  progress,
	})
	if err != nil {
		return fmt.Errorf("docx render: %w", err)
	}
	if _, err := os.Stat(docxPath); err != nil {
		return fmt.Errorf("docx render: pandoc wrote no output: %w", err)
	}
	return nil
}

// pandocArgs returns the pandoc command line, with paths relative to the
// mounted directory, and the host directory to mount.
func pandocArgs(mdPath, docxPath string) ([]string, string, error) {
	absMD, err := filepath.Abs(mdPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolving %s: %w", mdPath, err)
	}
	absOut, err := filepath.Abs(docxPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolving %s: %w", docxPath, err)
	}
	dir := filepath.Dir(absMD)
	rel, err := filepath.Rel(dir, absOut)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", fmt.Errorf("pandoc backend: output %s is outside %s", docxPath, dir)
	}
	return []string{
		filepath.Base(absMD),
		"-o", filepath.ToSlash(rel),
		"--resource-path=.",
	}, dir, nil
}

// hostUser returns "uid:gid" so files written to the mount belong to the
// caller. Empty on platforms without numeric ids.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}
