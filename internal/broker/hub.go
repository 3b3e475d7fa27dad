package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

var _ Publisher = (*Hub)(nil)

type topic struct {
	mu   sync.Mutex
	subs map[string]Subscriber

	// lastPosition - позиция последнего разосланного message.sent
	lastPosition int64
}

// Hub хранит живые подписки процесса и рассылает события локальным подписчикам.
//
// Блокировки: h.mu защищает только реестр топиков и соединений,
// рассылка идёт под мьютексом конкретного топика.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic

	// conns хранит map[conn_id]set[topic]
	conns map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]*topic),
		conns:  make(map[string]map[string]struct{}),
	}
}

// Add регистрирует подписку. Повторная регистрация того же соединения ничего не меняет.
func (h *Hub) Add(topicName string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[topicName]
	if !ok {
		t = &topic{subs: make(map[string]Subscriber)}
		h.topics[topicName] = t
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.subs[s.ID()]; exists {
		return false
	}

	t.subs[s.ID()] = s

	if _, ok := h.conns[s.ID()]; !ok {
		h.conns[s.ID()] = make(map[string]struct{})
	}
	h.conns[s.ID()][topicName] = struct{}{}

	metric.AddActiveSubscriptions(1)

	return true
}

// Remove снимает подписку соединения с топика.
func (h *Hub) Remove(topicName, connID string) (Subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.removeLocked(topicName, connID)
}

// RemoveConn снимает все подписки соединения и возвращает топики, на которые оно было подписано.
func (h *Hub) RemoveConn(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics := make([]string, 0, len(h.conns[connID]))
	for topicName := range h.conns[connID] {
		if _, ok := h.removeLocked(topicName, connID); ok {
			topics = append(topics, topicName)
		}
	}

	return topics
}

// RemovePrincipal снимает с топика все подписки принципала.
func (h *Hub) RemovePrincipal(topicName string, principalID uuid.UUID) []Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[topicName]
	if !ok {
		return nil
	}

	t.mu.Lock()
	var ids []string
	for id, s := range t.subs {
		if s.Principal().ID == principalID {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()

	removed := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.removeLocked(topicName, id); ok {
			removed = append(removed, s)
		}
	}

	return removed
}

func (h *Hub) removeLocked(topicName, connID string) (Subscriber, bool) {
	t, ok := h.topics[topicName]
	if !ok {
		return nil, false
	}

	t.mu.Lock()
	s, exists := t.subs[connID]
	if exists {
		delete(t.subs, connID)
	}
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		delete(h.topics, topicName)
	}

	if !exists {
		return nil, false
	}

	if topics, ok := h.conns[connID]; ok {
		delete(topics, topicName)
		if len(topics) == 0 {
			delete(h.conns, connID)
		}
	}

	metric.AddActiveSubscriptions(-1)

	return s, true
}

// Members возвращает участников, присутствующих в топике (без повторов по принципалу).
func (h *Hub) Members(topicName string) []models.Principal {
	t := h.lookup(topicName)
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(t.subs))
	members := make([]models.Principal, 0, len(t.subs))
	for _, s := range t.subs {
		p := s.Principal()
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		members = append(members, p)
	}

	return members
}

// Subscribed сообщает, подписано ли соединение на топик.
func (h *Hub) Subscribed(topicName, connID string) bool {
	t := h.lookup(topicName)
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.subs[connID]
	return ok
}

// Present сообщает, осталось ли у принципала хоть одно соединение на топике.
func (h *Hub) Present(topicName string, principalID uuid.UUID) bool {
	t := h.lookup(topicName)
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.subs {
		if s.Principal().ID == principalID {
			return true
		}
	}

	return false
}

// Publish рассылает событие подписчикам топика, кроме env.Origin.
// Событие с позицией не больше уже разосланной отбрасывается, чтобы подписчики
// видели сообщения в порядке их позиций.
//
// Если задан env.Evict, сначала снимаются подписки этого принципала,
// каждая снятая получает unsubscribed, а Frame уходит оставшимся.
func (h *Hub) Publish(ctx context.Context, topicName string, env events.Envelope) error {
	data, err := marshalFrame(env.Frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if env.Evict != nil {
		h.evict(topicName, *env.Evict)
	}

	t := h.lookup(topicName)
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if env.Position > 0 {
		if env.Position <= t.lastPosition {
			reason := staleReason(env.Position, t.lastPosition)

			metric.RecordDrop(reason)
			slog.Warn(
				"drop out of order event",
				slog.String(constant.Topic, topicName),
				slog.Int64("position", env.Position),
				slog.Int64("last_position", t.lastPosition),
				slog.String("reason", reason),
			)

			return nil
		}

		t.lastPosition = env.Position
	}

	for id, s := range t.subs {
		if id == env.Origin {
			continue
		}

		h.deliver(topicName, s, env.Frame.Type, data)
	}

	return nil
}

// staleReason отличает повтор той же позиции от перестановки между инстансами.
// Перестановка возможна при relay: append под локом канала идёт на одном инстансе,
// а публикации с разных инстансов доходят до подписчика разными путями.
func staleReason(position, lastPosition int64) string {
	if position == lastPosition {
		return metric.DropDuplicate
	}

	return metric.DropReordered
}

func (h *Hub) evict(topicName string, principalID uuid.UUID) {
	removed := h.RemovePrincipal(topicName, principalID)
	if len(removed) == 0 {
		return
	}

	_, channelID, _ := events.ParseTopic(topicName)

	frame, err := events.NewMessage(events.TypeUnsubscribed, events.ChannelEvent{ChannelID: channelID})
	if err != nil {
		slog.Error("build unsubscribed frame", slog.Any(constant.Error, err))
		return
	}

	data, err := marshalFrame(frame)
	if err != nil {
		slog.Error("marshal frame", slog.Any(constant.Error, err))
		return
	}

	for _, s := range removed {
		h.deliver(topicName, s, frame.Type, data)
	}

	slog.Debug(
		"evicted",
		slog.String(constant.Topic, topicName),
		slog.Any(constant.UserID, principalID),
		slog.Int("connections", len(removed)),
	)
}

func (h *Hub) deliver(topicName string, s Subscriber, eventType string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			metric.RecordDrop(metric.DropPanic)
			slog.Error(
				"deliver panic",
				slog.Any(constant.Error, r),
				slog.String(constant.Topic, topicName),
				slog.String(constant.ConnID, s.ID()),
			)
		}
	}()

	if !s.Deliver(data) {
		metric.RecordDrop(metric.DropQueueFull)
		slog.Warn(
			"subscriber did not accept event",
			slog.String(constant.Topic, topicName),
			slog.String(constant.ConnID, s.ID()),
			slog.String("type", eventType),
		)

		return
	}

	metric.RecordDelivery(eventType)
}

func marshalFrame(frame events.Message) ([]byte, error) {
	return json.Marshal(frame)
}

func (h *Hub) lookup(topicName string) *topic {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.topics[topicName]
}
