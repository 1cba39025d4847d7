package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var iNumberPattern = regexp.MustCompile(`^I[0-9]+$`)

// ParseINumber валидирует I-Number и приводит его к верхнему регистру.
// Корректный I-Number — буква I и одна или более цифр, например I123456.
func ParseINumber(raw string) (string, error) {
	iNumber := strings.ToUpper(strings.TrimSpace(raw))

	if iNumber == "" {
		return "", &FieldError{
			Field:   FieldINumber,
			Message: "Please enter your I-Number to start the quiz.",
		}
	}

	if utf8.RuneCountInString(iNumber) > MaxINumberLength {
		return "", &FieldError{
			Field:   FieldINumber,
			Message: "I-Number cannot exceed 20 characters.",
		}
	}

	if !iNumberPattern.MatchString(iNumber) {
		return "", &FieldError{
			Field:   FieldINumber,
			Message: "Please enter a valid I-Number (format: I followed by numbers)",
		}
	}

	return iNumber, nil
}

// ParseUserName валидирует имя пользователя.
func ParseUserName(raw string) (string, error) {
	userName := strings.TrimSpace(raw)

	if userName == "" {
		return "", &FieldError{
			Field:   FieldUserName,
			Message: "Please enter your name to start the quiz.",
		}
	}

	if utf8.RuneCountInString(userName) > MaxUserNameLength {
		return "", &FieldError{
			Field:   FieldUserName,
			Message: "Your name cannot exceed 50 characters.",
		}
	}

	return userName, nil
}
