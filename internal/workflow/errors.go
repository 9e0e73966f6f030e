package workflow

import (
	"errors"
	"fmt"
)

// Kind — каноническая категория ошибки движка.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	// KindUnauthorized — личность неизвестна.
	KindUnauthorized
	// KindForbidden — личность известна, но нет нужной связи
	// (создатель/ответственный).
	KindForbidden
	KindValidation
	// KindConflict — версия сущности изменилась между чтением и записью,
	// нужно перечитать и повторить.
	KindConflict
)

// Error несёт категорию и короткую причину для пользователя.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Reason: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

// KindOf возвращает категорию ошибки, KindUnknown для посторонних ошибок.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
