// Package storage persists diagnostic artifacts of a scraping run:
// screenshots, page dumps and run manifests.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sink accepts run artifacts.
type Sink interface {
	// Put stores data under name and returns where it ended up.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Config selects and configures the artifact sink.
type Config struct {
	Kind string   `mapstructure:"kind"` // "local", "s3" or "none"
	Dir  string   `mapstructure:"dir"`  // local directory, "debug" by default
	S3   S3Config `mapstructure:"s3"`
}

// New builds the sink named by cfg.Kind. For "s3" the bucket is created
// when missing.
func New(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Kind {
	case "", "local":
		dir := cfg.Dir
		if dir == "" {
			dir = "debug"
		}
		return NewLocalDir(dir), nil
	case "s3":
		client, err := NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown artifact sink %q", cfg.Kind)
	}
}

// LocalDir writes artifacts as files below a directory.
type LocalDir struct {
	dir string
}

// NewLocalDir returns a sink rooted at dir. The directory is created on
// first write.
func NewLocalDir(dir string) *LocalDir {
	return &LocalDir{dir: dir}
}

func (l *LocalDir) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	target := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return target, nil
}

// Discard drops every artifact.
type Discard struct{}

func (Discard) Put(context.Context, string, []byte, string) (string, error) { return "", nil }

// Manifest summarises one scraping run.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Session   string    `json:"session"`
	Search    string    `json:"search_url"`
	Visited   int       `json:"visited"`
	Accepted  int       `json:"accepted"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func manifestName(runID string) string {
	return "runs/" + runID + "/manifest.json"
}

// PutManifest writes the manifest of a run to the sink. Failures are
// logged, not returned; a manifest never decides the outcome of a run.
func PutManifest(ctx context.Context, sink Sink, m Manifest) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal run manifest", "error", err)
		return
	}
	loc, err := sink.Put(ctx, manifestName(m.RunID), data, "application/json")
	if err != nil {
		slog.Warn("Failed to write run manifest", "run", m.RunID, "error", err)
		return
	}
	if loc != "" {
		slog.Debug("Wrote run manifest", "location", loc)
	}
}
