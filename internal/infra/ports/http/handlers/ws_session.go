package handlers

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var _ broker.Subscriber = (*wsSession)(nil)

// wsSession - websocket соединение как подписчик брокера.
//
// Писать в conn может только writeLoop: все кадры, включая ответы на
// команды, проходят через очередь send.
type wsSession struct {
	id        string
	principal models.Principal
	conn      *websocket.Conn

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newWSSession(id string, principal models.Principal, conn *websocket.Conn, buffer int) *wsSession {
	return &wsSession{
		id:        id,
		principal: principal,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) Principal() models.Principal {
	return s.principal
}

// Deliver ставит кадр в очередь, не блокируясь. Переполненная очередь
// или закрытое соединение означают потерю кадра.
func (s *wsSession) Deliver(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// reply отправляет ответ на команду клиента.
func (s *wsSession) reply(eventType, ref string, data any) {
	frame, err := events.NewMessage(eventType, data)
	if err != nil {
		slog.Error("build reply", slog.Any(constant.Error, err), slog.String("type", eventType))
		return
	}
	frame.Ref = ref

	raw, err := json.Marshal(frame)
	if err != nil {
		slog.Error("marshal reply", slog.Any(constant.Error, err), slog.String("type", eventType))
		return
	}

	if !s.Deliver(raw) {
		slog.Warn(
			"reply dropped",
			slog.String(constant.ConnID, s.id),
			slog.String("type", eventType),
		)
	}
}

// Close идемпотентен: останавливает writeLoop и закрывает соединение,
// после чего readLoop получит ошибку и снимет подписки.
func (s *wsSession) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})

	return err
}

func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.Close()
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("websocket write", slog.Any(constant.Error, err), slog.String(constant.ConnID, s.id))
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("ping failed", slog.Any(constant.Error, err), slog.String(constant.ConnID, s.id))
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
