package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

type channelLog struct {
	mu       sync.Mutex
	messages []*models.Message
}

// MessageRepository хранит сообщения каждого канала в отдельном логе.
// Позиция сообщения равна его номеру в логе, начиная с 1.
type MessageRepository struct {
	channels *ChannelRepository

	mu   sync.RWMutex
	logs map[uuid.UUID]*channelLog
	byID map[int64]*models.Message

	lastID           atomic.Int64
	maxContentLength int
}

func NewMessageRepository(channels *ChannelRepository, maxContentLength int) *MessageRepository {
	return &MessageRepository{
		channels:         channels,
		logs:             make(map[uuid.UUID]*channelLog),
		byID:             make(map[int64]*models.Message),
		maxContentLength: maxContentLength,
	}
}

func (r *MessageRepository) Append(_ context.Context, channelID uuid.UUID, sender models.Principal, content string) (*models.Message, error) {
	content, err := input.NormalizeContent(content, r.maxContentLength)
	if err != nil {
		return nil, err
	}

	if !r.channels.Exists(channelID) {
		return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}

	l := r.log(channelID)

	l.mu.Lock()
	msg := &models.Message{
		ID:         r.lastID.Add(1),
		ChannelID:  channelID,
		Position:   int64(len(l.messages)) + 1,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	r.mu.Lock()
	r.byID[msg.ID] = msg
	r.mu.Unlock()

	return copyMessage(msg), nil
}

func (r *MessageRepository) PageForChannel(_ context.Context, channelID uuid.UUID, page models.PageRequest) (models.Page[*models.Message], error) {
	r.mu.RLock()
	l, ok := r.logs[channelID]
	r.mu.RUnlock()

	if !ok {
		return models.NewPage[*models.Message](nil, page, 0), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total := len(l.messages)
	items := make([]*models.Message, 0, page.PerPage)

	for i := page.Offset(); i >= 0 && i < total && len(items) < page.PerPage; i++ {
		items = append(items, copyMessage(l.messages[i]))
	}

	return models.NewPage(items, page, total), nil
}

func (r *MessageRepository) GetByID(_ context.Context, id int64) (*models.Message, error) {
	r.mu.RLock()
	msg, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}

	l := r.log(msg.ChannelID)

	l.mu.Lock()
	defer l.mu.Unlock()

	return copyMessage(msg), nil
}

func (r *MessageRepository) MarkRead(_ context.Context, id int64) (*models.Message, error) {
	r.mu.RLock()
	msg, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}

	l := r.log(msg.ChannelID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ReadAt == nil {
		now := time.Now().UTC()
		msg.ReadAt = &now
	}

	return copyMessage(msg), nil
}

func (r *MessageRepository) log(channelID uuid.UUID) *channelLog {
	r.mu.RLock()
	l, ok := r.logs[channelID]
	r.mu.RUnlock()

	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok = r.logs[channelID]; !ok {
		l = &channelLog{}
		r.logs[channelID] = l
	}

	return l
}

func copyMessage(m *models.Message) *models.Message {
	c := *m
	if m.ReadAt != nil {
		t := *m.ReadAt
		c.ReadAt = &t
	}

	return &c
}
