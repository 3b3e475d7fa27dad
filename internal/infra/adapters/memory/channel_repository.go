package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

// ChannelRepository хранит каналы и участников в памяти процесса.
// Используется при STORAGE=memory и в тестах.
type ChannelRepository struct {
	mu sync.RWMutex

	channels map[uuid.UUID]*models.Channel
	bySlug   map[string]uuid.UUID
	byName   map[string]uuid.UUID

	// members хранит map[channel_id]map[user_id]joined_at
	members map[uuid.UUID]map[uuid.UUID]time.Time
}

func NewChannelRepository() *ChannelRepository {
	return &ChannelRepository{
		channels: make(map[uuid.UUID]*models.Channel),
		bySlug:   make(map[string]uuid.UUID),
		byName:   make(map[string]uuid.UUID),
		members:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (r *ChannelRepository) Create(_ context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[channel.Name]; ok {
		return domain.NewValidationError("name", "has already been taken")
	}

	if _, ok := r.bySlug[channel.Slug]; ok {
		return domain.NewValidationError("name", "has already been taken")
	}

	stored := *channel
	r.channels[channel.ID] = &stored
	r.bySlug[channel.Slug] = channel.ID
	r.byName[channel.Name] = channel.ID
	r.members[channel.ID] = map[uuid.UUID]time.Time{channel.CreatorID: channel.CreatedAt}
	channel.MembersCount = 1

	return nil
}

func (r *ChannelRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, ok := r.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}

	c := *channel
	c.MembersCount = len(r.members[id])

	return &c, nil
}

func (r *ChannelRepository) GetBySlug(ctx context.Context, slug string) (*models.Channel, error) {
	r.mu.RLock()
	id, ok := r.bySlug[slug]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("channel %s: %w", slug, domain.ErrNotFound)
	}

	return r.GetByID(ctx, id)
}

func (r *ChannelRepository) ListPublic(_ context.Context, page models.PageRequest) (models.Page[*models.Channel], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Channel
	for _, c := range r.channels {
		if c.IsPublic() {
			matched = append(matched, c)
		}
	}

	return r.paginate(matched, page), nil
}

func (r *ChannelRepository) ListForUser(_ context.Context, userID uuid.UUID, page models.PageRequest) (models.Page[*models.Channel], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Channel
	for channelID, users := range r.members {
		if _, ok := users[userID]; ok {
			matched = append(matched, r.channels[channelID])
		}
	}

	return r.paginate(matched, page), nil
}

func (r *ChannelRepository) AddMember(_ context.Context, channelID, userID uuid.UUID) (*models.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.members[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}

	joinedAt, exists := users[userID]
	if !exists {
		joinedAt = time.Now().UTC()
		users[userID] = joinedAt
	}

	return &models.Membership{ChannelID: channelID, UserID: userID, JoinedAt: joinedAt}, nil
}

func (r *ChannelRepository) RemoveMember(_ context.Context, channelID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if users, ok := r.members[channelID]; ok {
		delete(users, userID)
	}

	return nil
}

func (r *ChannelRepository) IsMember(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[channelID][userID]
	return ok, nil
}

// Exists используется хранилищем сообщений для проверки канала.
func (r *ChannelRepository) Exists(channelID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.channels[channelID]
	return ok
}

// paginate сортирует как postgres: сначала новые, при равенстве по id.
// Вызывается под r.mu.
func (r *ChannelRepository) paginate(channels []*models.Channel, page models.PageRequest) models.Page[*models.Channel] {
	sort.Slice(channels, func(i, j int) bool {
		if !channels[i].CreatedAt.Equal(channels[j].CreatedAt) {
			return channels[i].CreatedAt.After(channels[j].CreatedAt)
		}

		return channels[i].ID.String() > channels[j].ID.String()
	})

	total := len(channels)
	items := make([]*models.Channel, 0, page.PerPage)

	for i := page.Offset(); i >= 0 && i < total && len(items) < page.PerPage; i++ {
		c := *channels[i]
		c.MembersCount = len(r.members[c.ID])
		items = append(items, &c)
	}

	return models.NewPage(items, page, total)
}
