package chat

import (
	"errors"
	"fmt"

	"github.com/thereayou/voxus/internal/database"
)

// Kind класс ошибки, уходит клиенту в событии error
type Kind string

const (
	KindUnauthenticated  Kind = "Unauthenticated"
	KindUnknownUser      Kind = "UnknownUser"
	KindRoomNotFound     Kind = "RoomNotFound"
	KindForbidden        Kind = "Forbidden"
	KindInvalidName      Kind = "InvalidName"
	KindMessageNotFound  Kind = "MessageNotFound"
	KindMissingRecipient Kind = "MissingRecipient"
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindInvalidMessage   Kind = "InvalidMessage"
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только Kind, чтобы errors.Is(err, ErrForbidden) работал для любой детали
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
	ErrUnknownUser      = &Error{Kind: KindUnknownUser}
	ErrRoomNotFound     = &Error{Kind: KindRoomNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInvalidName      = &Error{Kind: KindInvalidName}
	ErrMessageNotFound  = &Error{Kind: KindMessageNotFound}
	ErrMissingRecipient = &Error{Kind: KindMissingRecipient}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrInvalidMessage   = &Error{Kind: KindInvalidMessage}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func storeError(err error, detail string) *Error {
	return &Error{Kind: KindStoreUnavailable, Detail: detail, Err: err}
}

// fromStore not found становится kind, всё остальное StoreUnavailable
func fromStore(err error, kind Kind, detail string) *Error {
	if errors.Is(err, database.ErrNotFound) {
		return &Error{Kind: kind, Detail: detail}
	}
	return storeError(err, detail)
}
