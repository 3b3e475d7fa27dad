package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/adapters/postgres/repository"
)

// MessagePublisher рассылает сохранённое сообщение подписчикам канала, кроме origin.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *models.Message, origin string) error
}

type MessageUsecase interface {
	Send(ctx context.Context, p models.Principal, in *input.SendMessageInput) (*models.Message, error)
	History(ctx context.Context, p models.Principal, channelID uuid.UUID, page models.PageRequest) (models.Page[*models.Message], error)
	GetMessage(ctx context.Context, p models.Principal, id int64) (*models.Message, error)
	MarkRead(ctx context.Context, p models.Principal, id int64) (*models.Message, error)
}

type messageUsecase struct {
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	gate        *Gate
	publisher   MessagePublisher

	locks *channelLocks

	pageSize    int
	maxPageSize int
}

func NewMessageUsecase(
	channelRepo repository.ChannelRepository,
	messageRepo repository.MessageRepository,
	gate *Gate,
	publisher MessagePublisher,
	pageSize, maxPageSize int,
) MessageUsecase {
	return &messageUsecase{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		gate:        gate,
		publisher:   publisher,
		locks:       newChannelLocks(),
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

// Send сохраняет сообщение и рассылает его остальным подписчикам канала.
//
// Сохранение и публикация идут под блокировкой канала, поэтому локальные
// подписчики получают сообщения в порядке позиций. Ошибка рассылки не
// возвращается отправителю: сообщение уже сохранено.
func (uc *messageUsecase) Send(ctx context.Context, p models.Principal, in *input.SendMessageInput) (*models.Message, error) {
	channel, err := uc.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}

	if err = uc.gate.CanWrite(ctx, p, channel); err != nil {
		return nil, err
	}

	unlock := uc.locks.lock(channel.ID)
	defer unlock()

	msg, err := uc.messageRepo.Append(ctx, channel.ID, p, in.Content)
	if err != nil {
		return nil, err
	}

	metric.IncrementMessagesSent()

	if err = uc.publisher.PublishMessage(ctx, msg, in.OriginConnID); err != nil {
		metric.IncrementPublishErrors()
		slog.Error(
			"publish message",
			slog.Any(constant.Error, err),
			slog.Any(constant.ChannelID, msg.ChannelID),
			slog.Int64(constant.MessageID, msg.ID),
		)
	}

	return msg, nil
}

func (uc *messageUsecase) History(ctx context.Context, p models.Principal, channelID uuid.UUID, page models.PageRequest) (models.Page[*models.Message], error) {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return models.Page[*models.Message]{}, err
	}

	if err = uc.gate.visible(ctx, p, channel); err != nil {
		return models.Page[*models.Message]{}, err
	}

	return uc.messageRepo.PageForChannel(ctx, channel.ID, page.Normalize(uc.pageSize, uc.maxPageSize))
}

func (uc *messageUsecase) GetMessage(ctx context.Context, p models.Principal, id int64) (*models.Message, error) {
	msg, err := uc.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = uc.readable(ctx, p, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

func (uc *messageUsecase) MarkRead(ctx context.Context, p models.Principal, id int64) (*models.Message, error) {
	msg, err := uc.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = uc.readable(ctx, p, msg); err != nil {
		return nil, err
	}

	return uc.messageRepo.MarkRead(ctx, id)
}

// readable скрывает сообщения чужих каналов за not found.
func (uc *messageUsecase) readable(ctx context.Context, p models.Principal, msg *models.Message) error {
	member, err := uc.channelRepo.IsMember(ctx, msg.ChannelID, p.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	if !member {
		return fmt.Errorf("message %d: %w", msg.ID, domain.ErrNotFound)
	}

	return nil
}

type channelLock struct {
	mu   sync.Mutex
	refs int
}

// channelLocks - мьютекс на канал, живущий пока его кто-то держит или ждёт.
type channelLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*channelLock
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[uuid.UUID]*channelLock)}
}

func (l *channelLocks) lock(channelID uuid.UUID) func() {
	l.mu.Lock()
	cl, ok := l.locks[channelID]
	if !ok {
		cl = &channelLock{}
		l.locks[channelID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, channelID)
		}
		l.mu.Unlock()
	}
}
