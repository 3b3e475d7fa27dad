package dto

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type ChannelResponse struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   uuid.UUID `json:"creator_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Visibility  string    `json:"visibility"`
	CreatedAt   string    `json:"created_at"`

	MembersCount int `json:"members_count"`
}

func NewChannelResponseFromModel(ch *models.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID,
		CreatorID:   ch.CreatorID,
		Name:        ch.Name,
		Slug:        ch.Slug,
		Description: ch.Description,
		Visibility:  string(ch.Visibility),
		CreatedAt:   events.FormatTime(ch.CreatedAt),

		MembersCount: ch.MembersCount,
	}
}

// JoinChannelResponse - канал с моментом вступления текущего пользователя
type JoinChannelResponse struct {
	ChannelResponse

	JoinedAt string `json:"joined_at"`
}

func NewJoinChannelResponse(ch *models.Channel, membership *models.Membership) JoinChannelResponse {
	return JoinChannelResponse{
		ChannelResponse: NewChannelResponseFromModel(ch),
		JoinedAt:        events.FormatTime(membership.JoinedAt),
	}
}

// PageResponse - страница с метаданными пагинации
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

func NewPageResponse[S, T any](page models.Page[S], convert func(S) T) PageResponse[T] {
	return PageResponse[T]{
		Items:    lo.Map(page.Items, func(item S, _ int) T { return convert(item) }),
		Page:     page.Page,
		PerPage:  page.PerPage,
		Total:    page.Total,
		LastPage: page.LastPage,
	}
}
