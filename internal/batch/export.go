package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
)

// WriteArtifact saves a decoded artifact into dir under the entry's base
// name: images as PNG, text as UTF-8 .txt. Media streams have nothing to
// save and return an empty path.
func WriteArtifact(a artifact.Artifact, dir, entry string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry))
	if base == "" {
		base = "entry"
	}

	var path string
	switch v := a.(type) {
	case *artifact.Image:
		path = filepath.Join(dir, base+".png")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
		if err := imaging.Save(v.ToNRGBA(), path); err != nil {
			return "", fmt.Errorf("save %s: %w", path, err)
		}
	case *artifact.Text:
		path = filepath.Join(dir, base+".txt")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(v.Content), 0o600); err != nil {
			return "", fmt.Errorf("save %s: %w", path, err)
		}
	default:
		return "", nil
	}
	return path, nil
}
