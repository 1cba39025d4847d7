package auth

import "errors"

// Participant — проверенные данные участника из формы приветствия.
type Participant struct {
	UserName string
	INumber  string
}

// ParseParticipant валидирует оба поля формы приветствия.
// Если неверны оба поля, возвращаются обе ошибки (errors.Join).
func ParseParticipant(userName, iNumber string) (Participant, error) {
	name, nameErr := ParseUserName(userName)
	number, numberErr := ParseINumber(iNumber)

	if err := errors.Join(nameErr, numberErr); err != nil {
		return Participant{}, err
	}

	return Participant{UserName: name, INumber: number}, nil
}
