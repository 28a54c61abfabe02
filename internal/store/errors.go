package store

import (
	"errors"
	"fmt"
)

// ErrNotFound — запрошенный уровень отсутствует. Ожидаемый, нефатальный
// исход (устаревший id); вызывающие обрабатывают его как обычный результат.
var ErrNotFound = errors.New("уровень не найден")

// StorageError — носитель хранилища недоступен. Операция может быть
// повторена; in-memory состояние редактора при этом не теряется.
type StorageError struct {
	Op  string // save | list | get | delete
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("хранилище уровней: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PublishError — отказ сети или платформы при публикации. Повтор ранее
// принятого токена ошибкой не считается: Service.Publish трактует его
// как успех и сюда не заворачивает.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("публикация: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
