package auth

import "errors"

type errInvalidData struct {
	msg string
}

func (e *errInvalidData) SetMessage(msg string) error {
	return &errInvalidData{msg: msg}
}

func (e *errInvalidData) Error() string {
	return e.msg
}

func (e *errInvalidData) Is(target error) bool {
	_, ok := target.(*errInvalidData)
	return ok
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidData        = &errInvalidData{msg: "invalid data"}
	ErrUserAlreadyExists  = errors.New("user with that email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
