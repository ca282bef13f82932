package batch

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/dispatch"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

// EntryReport describes what happened to one scanned entry.
type EntryReport struct {
	Path      string        `json:"path" yaml:"path"`
	Size      int64         `json:"size" yaml:"size"`
	Digest    string        `json:"blake3" yaml:"blake3"`
	Decoder   string        `json:"decoder,omitempty" yaml:"decoder,omitempty"`
	Score     int           `json:"score" yaml:"score"`
	Kind      string        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Width     int           `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int           `json:"height,omitempty" yaml:"height,omitempty"`
	TextBytes int           `json:"text_bytes,omitempty" yaml:"text_bytes,omitempty"`
	Media     string        `json:"media_format,omitempty" yaml:"media_format,omitempty"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	Failures  []string      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Reason    string        `json:"reason" yaml:"reason"`
	RequestID string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// OK reports whether the entry was identified (and decoded, when asked).
func (r *EntryReport) OK() bool { return r.Error == "" }

// processEntry identifies and optionally decodes a single file. Problems
// with the entry itself end up in the report; only I/O errors opening the
// file are returned.
func processEntry(d *dispatch.Dispatcher, path string, cfg *Config) (*EntryReport, error) {
	start := time.Now()
	f, err := os.Open(path) //nolint:gosec // G304: paths come from the scan arguments
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	s, err := stream.New(f, info.Size(), filepath.Base(path))
	if err != nil {
		return nil, err
	}

	report := &EntryReport{Path: path, Size: info.Size()}
	defer func() { report.Duration = time.Since(start) }()

	if report.Digest, err = digest(s); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	best, err := d.Identify(s, cfg.Context)
	if err != nil {
		report.fail(err)
		return report, nil
	}
	report.Decoder = best.ID
	report.Score = best.Score
	if cfg.IdentifyOnly {
		report.Reason = decoder.Reason(nil)
		return report, nil
	}

	var res *dispatch.Result
	if cfg.ThumbnailSize > 0 {
		res, err = d.DecodeThumbnail(s, cfg.Context, cfg.ThumbnailSize)
	} else {
		res, err = d.Decode(s, cfg.Context)
	}
	if res != nil {
		report.RequestID = res.RequestID
		for _, fl := range res.Failures {
			report.Failures = append(report.Failures, fl.Err.Error())
		}
	}
	if err != nil {
		report.fail(err)
		return report, nil
	}
	defer func() { _ = artifact.Release(res.Artifact) }()

	report.Decoder = res.Decoder.ID
	report.Score = res.Decoder.Score
	report.Reason = decoder.Reason(nil)
	describe(report, res.Artifact)

	if cfg.OutputDir != "" {
		name := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			report.Digest[:8], filepath.Ext(path))
		if report.Output, err = WriteArtifact(res.Artifact, cfg.OutputDir, name); err != nil {
			report.fail(err)
		}
	}
	return report, nil
}

func (r *EntryReport) fail(err error) {
	r.Error = err.Error()
	// A joined no-candidate error also matches the individual failure
	// sentinels; the aggregate label wins.
	if errors.Is(err, decoder.ErrNoCandidate) {
		r.Reason = decoder.Reason(decoder.ErrNoCandidate)
		return
	}
	r.Reason = decoder.Reason(err)
}

func describe(r *EntryReport, a artifact.Artifact) {
	r.Kind = a.Kind().String()
	switch v := a.(type) {
	case *artifact.Image:
		r.Width, r.Height = v.Width, v.Height
	case *artifact.Text:
		r.TextBytes = len(v.Content)
	case *artifact.AudioStream:
		r.Media = resourceFormat(v.Resource)
	case *artifact.VideoStream:
		r.Media = resourceFormat(v.Resource)
	}
}

func resourceFormat(res artifact.Resource) string {
	if res == nil {
		return ""
	}
	return res.Format()
}

func digest(s *stream.Stream) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, s.Section()); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
