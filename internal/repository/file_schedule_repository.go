package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/pkg/storage"
)

// FileScheduleRepository keeps the schedule store as one JSON document on disk.
type FileScheduleRepository struct {
	storage  *storage.LocalStorage
	filename string
	logger   *zap.Logger
}

// NewFileScheduleRepository stores the document at path, creating its
// directory when needed.
func NewFileScheduleRepository(path string, logger *zap.Logger) (*FileScheduleRepository, error) {
	if path == "" {
		path = "data/schedule.json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	local, err := storage.NewLocalStorage(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return &FileScheduleRepository{storage: local, filename: filepath.Base(path), logger: logger}, nil
}

// Load reads the store. A missing document is an empty store; so is a
// document that cannot be decoded, which is logged and left on disk until the
// next Save replaces it.
func (r *FileScheduleRepository) Load(_ context.Context) (models.ScheduleStore, error) {
	data, err := r.storage.Read(r.filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return models.NewScheduleStore(), nil
		}
		return models.ScheduleStore{}, fmt.Errorf("load schedule document: %w", err)
	}

	var store models.ScheduleStore
	if err := json.Unmarshal(data, &store); err != nil {
		r.logger.Warn("schedule document is corrupt, starting empty",
			zap.String("path", r.storage.Path(r.filename)),
			zap.Error(err),
		)
		return models.NewScheduleStore(), nil
	}
	return store, nil
}

// Save atomically replaces the document.
func (r *FileScheduleRepository) Save(_ context.Context, store models.ScheduleStore) error {
	payload, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule document: %w", err)
	}
	if _, err := r.storage.Save(r.filename, payload); err != nil {
		return fmt.Errorf("save schedule document: %w", err)
	}
	return nil
}

// Clear deletes the document.
func (r *FileScheduleRepository) Clear(_ context.Context) (bool, error) {
	removed, err := r.storage.Delete(r.filename)
	if err != nil {
		return false, fmt.Errorf("clear schedule document: %w", err)
	}
	return removed, nil
}

// Path returns the location of the document.
func (r *FileScheduleRepository) Path() string {
	return r.storage.Path(r.filename)
}
