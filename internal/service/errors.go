package service

import (
	"errors"
	"fmt"
)

// ErrorKind категория ошибки, определяет как она показывается клиенту
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindPermission ErrorKind = "permission"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindState      ErrorKind = "state"
	KindInternal   ErrorKind = "internal"
)

// Error ошибка доменного слоя. Message показывается пользователю,
// для KindInternal вместо неё отдаётся общее сообщение.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет сравнивать с ErrValidation, ErrConflict и т.д. через errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Ошибки-образцы для errors.Is
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrPermission = &Error{Kind: KindPermission}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrState      = &Error{Kind: KindState}
	ErrInternal   = &Error{Kind: KindInternal}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func permissionError(format string, args ...any) error {
	return newError(KindPermission, format, args...)
}

func notFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func conflictError(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func stateError(format string, args ...any) error {
	return newError(KindState, format, args...)
}

// storeConflict реализуют ошибки хранилища о нарушении уникальности
// или проигранной конкурентной транзакции
type storeConflict interface {
	StoreConflict() bool
}

// internalError оборачивает сбой хранилища; доменные ошибки пропускает как есть
func internalError(op string, err error) error {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return err
	}
	var sc storeConflict
	if errors.As(err, &sc) && sc.StoreConflict() {
		return &Error{Kind: KindConflict, Message: "conflicting concurrent change, please retry", Err: err}
	}
	if de != nil {
		return err
	}
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf возвращает категорию ошибки; всё неизвестное считается внутренней ошибкой
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage сообщение, которое можно отдать клиенту
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "internal server error"
}
