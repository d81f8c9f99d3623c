package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"indexnow-go/pkg/logger"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStorage stores each key as a JSON document under DataDir. Writes go
// through a temporary file and a rename so a crash never leaves a torn document.
type FileStorage struct {
	dataDir string
	log     *logger.Logger
	mu      sync.RWMutex
}

// NewFileStorage creates the data directory if needed
func NewFileStorage(config StorageConfig) (*FileStorage, error) {
	if config.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fs := &FileStorage{
		dataDir: config.DataDir,
		log:     logger.GetLogger().WithField("component", "file_storage"),
	}
	fs.log.WithField("data_dir", config.DataDir).Debug("File storage initialized")
	return fs, nil
}

func (fs *FileStorage) Save(ctx context.Context, key string, data interface{}) error {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp, err := os.CreateTemp(fs.dataDir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		fs.log.WithError(err).WithField("key", key).Error("Failed to replace data file")
		return fmt.Errorf("failed to replace file: %w", err)
	}

	fs.log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(jsonData),
	}).Debug("Data saved successfully")
	return nil
}

func (fs *FileStorage) Load(ctx context.Context, key string, dest interface{}) error {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	fs.mu.RLock()
	jsonData, err := os.ReadFile(filePath)
	fs.mu.RUnlock()

	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(jsonData, dest); err != nil {
		fs.log.WithError(err).WithField("key", key).Error("Failed to unmarshal data")
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

func (fs *FileStorage) Delete(ctx context.Context, key string) error {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (fs *FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err = os.Stat(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (fs *FileStorage) getFilePath(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(fs.dataDir, key+".json"), nil
}
