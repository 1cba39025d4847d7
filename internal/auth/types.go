package auth

import "errors"

// ErrValidation — общая ошибка валидации пользовательского ввода.
var ErrValidation = errors.New("validation error")

// Ограничения полей формы приветствия.
const (
	MaxUserNameLength = 50
	MaxINumberLength  = 20
)

// Названия полей формы.
const (
	FieldUserName = "userName"
	FieldINumber  = "iNumber"
)

// FieldError описывает ошибку в одном поле формы.
// Error возвращает сообщение, которое можно показать пользователю.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *FieldError) Unwrap() error {
	return ErrValidation
}
