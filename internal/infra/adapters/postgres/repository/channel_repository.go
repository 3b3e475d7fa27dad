package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

type ChannelRepository interface {
	// Create сохраняет канал и в той же транзакции делает создателя участником
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	GetBySlug(ctx context.Context, slug string) (*models.Channel, error)

	ListPublic(ctx context.Context, page models.PageRequest) (models.Page[*models.Channel], error)
	ListForUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) (models.Page[*models.Channel], error)

	AddMember(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error)
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
}

const channelColumns = `c.id, c.creator_id, c.name, c.slug, c.description, c.visibility, c.created_at,
	(SELECT count(*) FROM channel_users m WHERE m.channel_id = c.id) AS members_count`

type channelRepo struct {
	db *sqlx.DB
}

func NewChannelRepo(db *sqlx.DB) ChannelRepository {
	return &channelRepo{db: db}
}

func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO channels (id, creator_id, name, slug, description, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		channel.ID,
		channel.CreatorID,
		channel.Name,
		channel.Slug,
		channel.Description,
		channel.Visibility,
		channel.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("name", "has already been taken")
		}

		return fmt.Errorf("insert channel: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO channel_users (channel_id, user_id, joined_at) VALUES ($1, $2, $3)",
		channel.ID,
		channel.CreatorID,
		channel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert creator membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	channel.MembersCount = 1

	return nil
}

func (r *channelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	return r.getOne(ctx, "SELECT "+channelColumns+" FROM channels c WHERE c.id = $1", id)
}

func (r *channelRepo) GetBySlug(ctx context.Context, slug string) (*models.Channel, error) {
	return r.getOne(ctx, "SELECT "+channelColumns+" FROM channels c WHERE c.slug = $1", slug)
}

func (r *channelRepo) getOne(ctx context.Context, query string, arg any) (*models.Channel, error) {
	var channel models.Channel

	err := r.db.GetContext(ctx, &channel, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %v: %w", arg, domain.ErrNotFound)
		}

		return nil, err
	}

	return &channel, nil
}

func (r *channelRepo) ListPublic(ctx context.Context, page models.PageRequest) (models.Page[*models.Channel], error) {
	var total int

	err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM channels WHERE visibility = $1", models.VisibilityPublic)
	if err != nil {
		return models.Page[*models.Channel]{}, fmt.Errorf("count public channels: %w", err)
	}

	var channels []*models.Channel

	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		WHERE c.visibility = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`

	err = r.db.SelectContext(ctx, &channels, query, models.VisibilityPublic, page.PerPage, page.Offset())
	if err != nil {
		return models.Page[*models.Channel]{}, fmt.Errorf("select public channels: %w", err)
	}

	return models.NewPage(channels, page, total), nil
}

func (r *channelRepo) ListForUser(ctx context.Context, userID uuid.UUID, page models.PageRequest) (models.Page[*models.Channel], error) {
	var total int

	err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM channel_users WHERE user_id = $1", userID)
	if err != nil {
		return models.Page[*models.Channel]{}, fmt.Errorf("count user channels: %w", err)
	}

	var channels []*models.Channel

	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		INNER JOIN channel_users cu ON c.id = cu.channel_id
		WHERE cu.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`

	err = r.db.SelectContext(ctx, &channels, query, userID, page.PerPage, page.Offset())
	if err != nil {
		return models.Page[*models.Channel]{}, fmt.Errorf("select user channels: %w", err)
	}

	return models.NewPage(channels, page, total), nil
}

// AddMember возвращает членство; при повторном входе joined_at остаётся прежним.
func (r *channelRepo) AddMember(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership

	// DO UPDATE без изменений нужен, чтобы RETURNING отдал существующую строку
	err := r.db.GetContext(
		ctx,
		&membership,
		`INSERT INTO channel_users (channel_id, user_id, joined_at) VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET joined_at = channel_users.joined_at
		RETURNING channel_id, user_id, joined_at`,
		channelID,
		userID,
		time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
		}

		return nil, fmt.Errorf("add member: %w", err)
	}

	return &membership, nil
}

func (r *channelRepo) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM channel_users WHERE channel_id = $1 AND user_id = $2", channelID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	return nil
}

func (r *channelRepo) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var exists bool

	err := r.db.GetContext(
		ctx,
		&exists,
		"SELECT EXISTS (SELECT 1 FROM channel_users WHERE channel_id = $1 AND user_id = $2)",
		channelID,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}

	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
