// Package backup writes export snapshots to a local file or a Google
// spreadsheet.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"campuswal/internal/core"
	"campuswal/internal/log"
)

// Sink receives a full snapshot and replaces whatever it held before.
type Sink interface {
	Name() string
	Write(ctx context.Context, exp core.Export) error
}

// Exporter is satisfied by *backend.Gateway.
type Exporter interface {
	ExportData(ctx context.Context) (core.Export, error)
}

// Run takes one snapshot and writes it to every sink. A failing sink does not
// stop the others.
func Run(ctx context.Context, src Exporter, logger *log.Logger, sinks ...Sink) error {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackup)

	exp, err := src.ExportData(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, exp); err != nil {
			logger.ErrorContext(ctx, "Backup sink failed", "sink", s.Name(),
				log.FieldError, err.Error(), log.FieldOperation, log.OpExport)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		logger.InfoContext(ctx, "Backup written", "sink", s.Name(),
			"expenses", len(exp.Expenses), "todos", len(exp.Todos), log.FieldOperation, log.OpExport)
	}
	return errors.Join(errs...)
}

// FileSink writes the snapshot as indented JSON.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file:" + s.path }

// Write replaces the file atomically.
func (s *FileSink) Write(_ context.Context, exp core.Export) error {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ReadFile loads a snapshot written by FileSink.
func ReadFile(path string) (core.Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Export{}, err
	}
	var exp core.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return core.Export{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return exp, nil
}
