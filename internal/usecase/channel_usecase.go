package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/adapters/postgres/repository"
)

// Evictor снимает живые подписки принципала на канал.
type Evictor interface {
	Evict(ctx context.Context, channelID uuid.UUID, p models.Principal)
}

type ChannelUsecase interface {
	CreateChannel(ctx context.Context, p models.Principal, in *input.CreateChannelInput) (*models.Channel, error)

	// GetChannel ищет канал по id или slug.
	GetChannel(ctx context.Context, p models.Principal, ref string) (*models.Channel, error)

	ListPublic(ctx context.Context, page models.PageRequest) (models.Page[*models.Channel], error)
	ListForUser(ctx context.Context, p models.Principal, page models.PageRequest) (models.Page[*models.Channel], error)

	// Join возвращает канал и членство; повторный вход сохраняет исходный joined_at.
	Join(ctx context.Context, p models.Principal, channelID uuid.UUID) (*models.Channel, *models.Membership, error)
	Leave(ctx context.Context, p models.Principal, channelID uuid.UUID) error
}

type channelUsecase struct {
	channelRepo repository.ChannelRepository
	gate        *Gate
	evictor     Evictor

	pageSize    int
	maxPageSize int
}

func NewChannelUsecase(
	channelRepo repository.ChannelRepository,
	gate *Gate,
	evictor Evictor,
	pageSize, maxPageSize int,
) ChannelUsecase {
	return &channelUsecase{
		channelRepo: channelRepo,
		gate:        gate,
		evictor:     evictor,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

func (uc *channelUsecase) CreateChannel(ctx context.Context, p models.Principal, in *input.CreateChannelInput) (*models.Channel, error) {
	in.CreatorID = p.ID

	if err := in.Validate(); err != nil {
		return nil, err
	}

	channel := models.NewChannel(in)
	if channel.Slug == "" {
		return nil, domain.NewValidationError("name", "must contain at least one letter or digit")
	}

	if err := uc.channelRepo.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	slog.Info(
		"channel created",
		slog.Any(constant.ChannelID, channel.ID),
		slog.Any(constant.UserID, p.ID),
	)

	return channel, nil
}

func (uc *channelUsecase) GetChannel(ctx context.Context, p models.Principal, ref string) (*models.Channel, error) {
	var (
		channel *models.Channel
		err     error
	)

	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		channel, err = uc.channelRepo.GetByID(ctx, id)
	} else {
		channel, err = uc.channelRepo.GetBySlug(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	// Открытые каналы видны всем, закрытые только участникам
	if channel.IsPublic() {
		return channel, nil
	}

	if err = uc.gate.visible(ctx, p, channel); err != nil {
		return nil, err
	}

	return channel, nil
}

func (uc *channelUsecase) ListPublic(ctx context.Context, page models.PageRequest) (models.Page[*models.Channel], error) {
	return uc.channelRepo.ListPublic(ctx, page.Normalize(uc.pageSize, uc.maxPageSize))
}

func (uc *channelUsecase) ListForUser(ctx context.Context, p models.Principal, page models.PageRequest) (models.Page[*models.Channel], error) {
	return uc.channelRepo.ListForUser(ctx, p.ID, page.Normalize(uc.pageSize, uc.maxPageSize))
}

func (uc *channelUsecase) Join(ctx context.Context, p models.Principal, channelID uuid.UUID) (*models.Channel, *models.Membership, error) {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}

	if err = uc.gate.CanJoin(p, channel); err != nil {
		return nil, nil, err
	}

	membership, err := uc.channelRepo.AddMember(ctx, channel.ID, p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("add member: %w", err)
	}

	// Счётчик прочитан до вступления
	channel, err = uc.channelRepo.GetByID(ctx, channel.ID)
	if err != nil {
		return nil, nil, err
	}

	return channel, membership, nil
}

func (uc *channelUsecase) Leave(ctx context.Context, p models.Principal, channelID uuid.UUID) error {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	if err = uc.gate.visible(ctx, p, channel); err != nil {
		// Выход из открытого канала без членства ничего не меняет
		if errors.Is(err, domain.ErrForbidden) {
			return nil
		}

		return err
	}

	if err = uc.channelRepo.RemoveMember(ctx, channel.ID, p.ID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	uc.evictor.Evict(ctx, channel.ID, p)

	return nil
}
