package storage

import (
	"context"
	"errors"
	"time"

	"github.com/letsssgooo/quizweb/internal/quiz"
)

// ErrBusy — по ключу уже выполняется запрос.
var ErrBusy = errors.New("another request is in progress for this browser session")

// Record — всё, что хранится для одного браузера.
type Record struct {
	State quiz.State
	// UserName — имя из формы приветствия, показывается строкой игрока на всех экранах квиза.
	UserName string
	// Flashes — одноразовые сообщения, показываются при следующей отрисовке.
	Flashes   []Flash
	UpdatedAt time.Time
}

// Уровни Flash.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash — одноразовое сообщение для следующей страницы.
type Flash struct {
	Level string
	Text  string
}

// Storage определяет интерфейс хранения состояния браузерных сессий.
type Storage interface {
	// Get возвращает запись по ключу; для неизвестного ключа — пустую запись.
	Get(ctx context.Context, key string) (Record, error)

	// Save сохраняет запись.
	Save(ctx context.Context, key string, rec Record) error

	// Delete удаляет запись.
	Delete(ctx context.Context, key string) error

	// Acquire захватывает ключ на время запроса. Если ключ занят, возвращает ErrBusy.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
