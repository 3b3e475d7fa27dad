package memory

import (
	"log/slog"
	"sync"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
)

// Closer - живое websocket соединение, которое можно закрыть при остановке сервера.
type Closer interface {
	Close() error
}

// WebsocketConnectionRepository интерфейс для работы с активными сессиями в памяти
type WebsocketConnectionRepository interface {
	Add(connID string, conn Closer)
	Remove(connID string)

	Count() int
	CloseAll()
}

type wsConnectionRepository struct {
	// wsConns хранит map[conn_id]conn
	wsConns map[string]Closer

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		wsConns: make(map[string]Closer, 10),
	}
}

func (w *wsConnectionRepository) Add(connID string, conn Closer) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.wsConns[connID]; exists {
		return
	}

	w.wsConns[connID] = conn

	// Увеличиваем счетчик активных WS соединений
	metric.IncrementWSActiveConnections()
}

func (w *wsConnectionRepository) Remove(connID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Проверяем, существует ли соединение перед удалением
	if _, exists := w.wsConns[connID]; exists {
		delete(w.wsConns, connID)

		// Уменьшаем счетчик активных WS соединений
		metric.DecrementWSActiveConnections()
	}
}

func (w *wsConnectionRepository) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.wsConns)
}

// CloseAll закрывает все соединения. Сессии сами удаляют себя через Remove.
func (w *wsConnectionRepository) CloseAll() {
	w.mu.RLock()
	conns := make(map[string]Closer, len(w.wsConns))
	for id, conn := range w.wsConns {
		conns[id] = conn
	}
	w.mu.RUnlock()

	for id, conn := range conns {
		if err := conn.Close(); err != nil {
			slog.Error(
				"close websocket",
				slog.Any(constant.Error, err),
				slog.String(constant.ConnID, id),
			)
		}
	}
}
