package verify

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/spf13/afero"
)

// Artifact is a screenshot written during a run.
type Artifact struct {
	Name string
	Path string
	Size int
}

func writeArtifact(fs afero.Fs, name, path string, data []byte) (Artifact, error) {
	if len(data) == 0 {
		return Artifact{}, errors.New("screenshot is empty")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return Artifact{}, fmt.Errorf("screenshot is not a valid PNG: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return Artifact{}, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	return Artifact{Name: name, Path: path, Size: len(data)}, nil
}
