package model

import (
	"errors"
	"fmt"
	"strings"
)

// Стандартные ошибки администрирования
var (
	ErrLastOwner       = errors.New("cannot remove the last owner")
	ErrAlreadyOwner    = errors.New("user is already an owner")
	ErrNotOwner        = errors.New("only owners can use this function")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// StorageError представляет ошибку чтения или записи файла
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError перечисляет некорректные или отсутствующие поля
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Reason, strings.Join(e.Fields, ", "))
}

// NotFoundError сообщает об отсутствии объекта
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// CorruptError сообщает о поврежденном сохраненном документе
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return "corrupt document: " + e.Reason
}

// DeliveryError представляет неудачную отправку или удаление сообщения
type DeliveryError struct {
	ChatID int64
	Op     string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %d failed: %v", e.Op, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewValidationError создает ошибку валидации
func NewValidationError(reason string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: reason}
}
