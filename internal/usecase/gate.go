package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/adapters/postgres/repository"
)

var _ broker.Authorizer = (*Gate)(nil)

// Gate решает, разрешена ли операция принципалу над каналом.
// Своего состояния нет, членство читается из хранилища каналов.
// nil означает разрешение, отказ - *domain.AuthorizationError.
type Gate struct {
	channelRepo repository.ChannelRepository
}

func NewGate(channelRepo repository.ChannelRepository) *Gate {
	return &Gate{channelRepo: channelRepo}
}

func (g *Gate) CanRead(ctx context.Context, p models.Principal, channel *models.Channel) error {
	member, err := g.channelRepo.IsMember(ctx, channel.ID, p.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	if !member {
		return domain.NewAuthorizationError("you must be a member of this channel to read it")
	}

	return nil
}

// CanWrite совпадает с CanRead: писать может любой участник.
func (g *Gate) CanWrite(ctx context.Context, p models.Principal, channel *models.Channel) error {
	member, err := g.channelRepo.IsMember(ctx, channel.ID, p.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	if !member {
		return domain.NewAuthorizationError("you must be a member of this channel to send messages")
	}

	return nil
}

func (g *Gate) CanJoin(_ models.Principal, channel *models.Channel) error {
	if !channel.IsPublic() {
		return domain.NewAuthorizationError("cannot join a private channel without an invitation")
	}

	return nil
}

// AuthorizeRead - проверка подписки для брокера. Несуществующий канал и
// отсутствие членства дают одинаковый отказ.
func (g *Gate) AuthorizeRead(ctx context.Context, p models.Principal, channelID uuid.UUID) error {
	channel, err := g.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewAuthorizationError("channel not found or access denied")
		}

		return fmt.Errorf("get channel: %w", err)
	}

	return g.CanRead(ctx, p, channel)
}

// visible загружает канал для операции чтения. Закрытый канал для не участника
// выглядит несуществующим, открытый отвечает отказом.
func (g *Gate) visible(ctx context.Context, p models.Principal, channel *models.Channel) error {
	err := g.CanRead(ctx, p, channel)
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrForbidden) && !channel.IsPublic() {
		return fmt.Errorf("channel %s: %w", channel.ID, domain.ErrNotFound)
	}

	return err
}
