// Package store содержит файловое хранилище документа конфигурации.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// ConfigStore хранит документ в одном JSON файле.
// Все операции сериализуются мьютексом: Update выполняет load → mutate → save без вмешательства других писателей.
type ConfigStore struct {
	path    string
	ownerID int64
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewConfigStore создает новое хранилище
func NewConfigStore(path string, ownerID int64, logger *zap.Logger) *ConfigStore {
	return &ConfigStore{
		path:    path,
		ownerID: ownerID,
		logger:  logger,
	}
}

// Path возвращает путь к файлу документа
func (s *ConfigStore) Path() string {
	return s.path
}

// DefaultOwner возвращает владельца, который попадает в новый документ
func (s *ConfigStore) DefaultOwner() int64 {
	return s.ownerID
}

// Load читает документ. Отсутствующий файл создается с настройками по умолчанию,
// поврежденный файл заменяется документом по умолчанию только в памяти.
func (s *ConfigStore) Load() (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save перезаписывает документ целиком
func (s *ConfigStore) Save(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update атомарно загружает, изменяет и сохраняет документ.
// Если fn возвращает ошибку, документ не сохраняется.
func (s *ConfigStore) Update(fn func(doc *model.Document) error) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *ConfigStore) load() (*model.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := model.Default(s.ownerID)
		if err := s.save(doc); err != nil {
			return nil, err
		}
		s.logger.Info("Created default config document", zap.String("path", s.path))
		return doc, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "read", Path: s.path, Err: err}
	}

	doc, err := model.DecodeDocument(data, model.Default(s.ownerID))
	if err != nil {
		s.logger.Warn("Config document is malformed, using defaults in memory",
			zap.String("path", s.path),
			zap.Error(err))
		return model.Default(s.ownerID), nil
	}
	doc.Backfill(s.ownerID)
	return doc, nil
}

func (s *ConfigStore) save(doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return &model.StorageError{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &model.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// writeFileAtomic пишет во временный файл и переименовывает его поверх целевого
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
