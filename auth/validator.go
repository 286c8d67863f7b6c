package auth

import (
	"strings"

	"chathub/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Names feed the history key space ("msg:{room}:…"), so the separator and
// whitespace are rejected up front rather than escaped downstream.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("chatname", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return !strings.ContainsAny(s, ":\n\r\t")
	})
	return v
}

type LoginRequest struct {
	Nickname string `validate:"required,min=1,max=24,chatname"`
}

type CreateRoomRequest struct {
	Name     string `validate:"required,min=1,max=24,chatname"`
	Private  bool
	Password string `validate:"max=72"`
}

// ValidateNickname trims and checks a login nickname, returning the
// canonical form used for registration.
func ValidateNickname(nickname string) (string, error) {
	trimmed := strings.TrimSpace(nickname)
	if err := validate.Struct(LoginRequest{Nickname: trimmed}); err != nil {
		return "", errors.ErrNicknameRequired
	}
	return trimmed, nil
}

func ValidateRoomName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := validate.Struct(CreateRoomRequest{Name: trimmed}); err != nil {
		return "", errors.ErrInvalidRoomName
	}
	return trimmed, nil
}
