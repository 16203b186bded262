package store

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"autoapprove/internal/model"
)

// BackupSlot хранит единственный последний снимок для отмены
type BackupSlot struct {
	path string
	mu   sync.Mutex
}

// NewBackupSlot создает слот отмены
func NewBackupSlot(path string) *BackupSlot {
	return &BackupSlot{path: path}
}

// Write перезаписывает слот
func (s *BackupSlot) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return &model.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Read возвращает содержимое слота или NotFoundError
func (s *BackupSlot) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &model.NotFoundError{What: "last backup"}
	}
	if err != nil {
		return nil, &model.StorageError{Op: "read", Path: s.path, Err: err}
	}
	return data, nil
}

// Exists сообщает, есть ли сохраненный снимок
func (s *BackupSlot) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
