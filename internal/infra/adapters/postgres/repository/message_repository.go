package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

type MessageRepository interface {
	// Append проверяет содержимое и присваивает сообщению следующую позицию в канале.
	// Авторизацию выполняет вызывающая сторона.
	Append(ctx context.Context, channelID uuid.UUID, sender models.Principal, content string) (*models.Message, error)
	PageForChannel(ctx context.Context, channelID uuid.UUID, page models.PageRequest) (models.Page[*models.Message], error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	MarkRead(ctx context.Context, id int64) (*models.Message, error)
}

const messageColumns = "id, channel_id, position, sender_id, sender_name, content, created_at, read_at"

type messageRepo struct {
	db               *sqlx.DB
	maxContentLength int
}

func NewMessageRepo(db *sqlx.DB, maxContentLength int) MessageRepository {
	return &messageRepo{db: db, maxContentLength: maxContentLength}
}

func (r *messageRepo) Append(ctx context.Context, channelID uuid.UUID, sender models.Principal, content string) (*models.Message, error) {
	content, err := input.NormalizeContent(content, r.maxContentLength)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Строка канала остаётся заблокированной до коммита: это и есть точка
	// сериализации позиций внутри канала.
	var position int64

	err = tx.GetContext(
		ctx,
		&position,
		"UPDATE channels SET last_position = last_position + 1 WHERE id = $1 RETURNING last_position",
		channelID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
		}

		return nil, fmt.Errorf("next position: %w", err)
	}

	msg := &models.Message{
		ChannelID:  channelID,
		Position:   position,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	err = tx.QueryRowxContext(
		ctx,
		`INSERT INTO messages (channel_id, position, sender_id, sender_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		msg.ChannelID,
		msg.Position,
		msg.SenderID,
		msg.SenderName,
		msg.Content,
		msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return msg, nil
}

func (r *messageRepo) PageForChannel(ctx context.Context, channelID uuid.UUID, page models.PageRequest) (models.Page[*models.Message], error) {
	var total int

	err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM messages WHERE channel_id = $1", channelID)
	if err != nil {
		return models.Page[*models.Message]{}, fmt.Errorf("count messages: %w", err)
	}

	var messages []*models.Message

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE channel_id = $1
		ORDER BY position ASC
		LIMIT $2 OFFSET $3
	`

	err = r.db.SelectContext(ctx, &messages, query, channelID, page.PerPage, page.Offset())
	if err != nil {
		return models.Page[*models.Message]{}, fmt.Errorf("select messages: %w", err)
	}

	return models.NewPage(messages, page, total), nil
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	var msg models.Message

	err := r.db.GetContext(ctx, &msg, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
		}

		return nil, err
	}

	return &msg, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, id int64) (*models.Message, error) {
	var msg models.Message

	err := r.db.GetContext(
		ctx,
		&msg,
		"UPDATE messages SET read_at = COALESCE(read_at, now()) WHERE id = $1 RETURNING "+messageColumns,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
		}

		return nil, fmt.Errorf("mark read: %w", err)
	}

	return &msg, nil
}
