package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePresentation: запись для этого сообщения уже существует.
	ErrDuplicatePresentation = errors.New("duplicate presentation")
	// ErrNotFound: в хранилище нет записи.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyDecided: решение по предложению уже принято.
	ErrAlreadyDecided = errors.New("suggestion already decided")
	// ErrStoreUnavailable: ошибка ввода-вывода хранилища.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnknownSuggestion: сообщение не связано ни с одним предложением.
	ErrUnknownSuggestion = errors.New("unknown suggestion")
	// ErrNotAuthorized: у пользователя нет нужной роли.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidReason: причина пустая или слишком длинная.
	ErrInvalidReason = errors.New("invalid reason")
	// ErrInvalidAction: неизвестное действие.
	ErrInvalidAction = errors.New("invalid action")
	// ErrSkipped: канал не управляется ботом, событие пропущено.
	ErrSkipped = errors.New("channel is not suggestion-managed")
)

// Unavailable оборачивает ошибку драйвера как ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
