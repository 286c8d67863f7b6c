package errors

import "errors"

var (
	ErrNicknameRequired = errors.New("nickname required")
	ErrNicknameTaken    = errors.New("nickname already in use")
	ErrInvalidRoomName  = errors.New("room name is invalid")
	ErrRoomExists       = errors.New("room already exists")
	ErrRoomNotFound     = errors.New("room not found")
	ErrBanned           = errors.New("you are banned from this room")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrNotLoggedIn      = errors.New("login first")
	ErrNotInRoom        = errors.New("join a room first")
	ErrNotOwner         = errors.New("only the room owner can do that")
	ErrUserNotFound     = errors.New("user not found")
	ErrTargetNotInRoom  = errors.New("user not in room")
	ErrMessageNotFound  = errors.New("message not found")
	ErrServerBusy       = errors.New("server busy, try again")
	ErrWorkerPanic      = errors.New("worker panic")
	ErrEmptyWords       = errors.New("no censored words loaded")
)

// Kind groups the expected failure modes so callers can branch on
// category instead of individual sentinels.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
	KindState
)

func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNicknameRequired), errors.Is(err, ErrInvalidRoomName):
		return KindValidation
	case errors.Is(err, ErrNicknameTaken), errors.Is(err, ErrRoomExists):
		return KindConflict
	case errors.Is(err, ErrBanned), errors.Is(err, ErrWrongPassword), errors.Is(err, ErrNotOwner):
		return KindAuth
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTargetNotInRoom), errors.Is(err, ErrMessageNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotLoggedIn), errors.Is(err, ErrNotInRoom):
		return KindState
	default:
		return KindUnknown
	}
}

// Reason renders an error as the human-readable string carried in
// acknowledgment payloads. Never nil-safe on purpose: acks for successful
// operations don't carry a reason at all.
func Reason(err error) string {
	return err.Error()
}

func Is(err, target error) bool { return errors.Is(err, target) }
