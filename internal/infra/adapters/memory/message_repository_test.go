package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomChat/internal/domain"
	"github.com/qrave1/RoomChat/internal/domain/models"
)

func newMessageFixture(t *testing.T) (*MessageRepository, *models.Channel, models.Principal) {
	t.Helper()

	channels := NewChannelRepository()
	sender := models.Principal{ID: uuid.New(), DisplayName: "alice"}
	channel := newTestChannel(sender.ID, "general", models.VisibilityPublic)
	require.NoError(t, channels.Create(context.Background(), channel))

	return NewMessageRepository(channels, 100), channel, sender
}

func TestMessageRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("should assign increasing positions per channel", func(t *testing.T) {
		req := require.New(t)
		repo, channel, sender := newMessageFixture(t)

		for i, content := range []string{"a", "b", "c"} {
			msg, err := repo.Append(ctx, channel.ID, sender, content)
			req.NoError(err)
			req.Equal(int64(i+1), msg.Position)
			req.Equal(sender.ID, msg.SenderID)
			req.Equal("alice", msg.SenderName)
			req.False(msg.IsRead())
		}
	})

	t.Run("should trim and validate content", func(t *testing.T) {
		req := require.New(t)
		repo, channel, sender := newMessageFixture(t)

		msg, err := repo.Append(ctx, channel.ID, sender, "  hello ")
		req.NoError(err)
		req.Equal("hello", msg.Content)

		_, err = repo.Append(ctx, channel.ID, sender, "   ")
		req.ErrorIs(err, domain.ErrValidation)

		page, err := repo.PageForChannel(ctx, channel.ID, models.PageRequest{Page: 1, PerPage: 10})
		req.NoError(err)
		req.Equal(1, page.Total)
	})

	t.Run("should fail for unknown channel", func(t *testing.T) {
		req := require.New(t)
		repo, _, sender := newMessageFixture(t)

		_, err := repo.Append(ctx, uuid.New(), sender, "hi")
		req.ErrorIs(err, domain.ErrNotFound)
	})

	t.Run("should keep positions dense under concurrent appends", func(t *testing.T) {
		req := require.New(t)
		repo, channel, sender := newMessageFixture(t)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Append(ctx, channel.ID, sender, fmt.Sprintf("m%d", i))
				req.NoError(err)
			}(i)
		}
		wg.Wait()

		page, err := repo.PageForChannel(ctx, channel.ID, models.PageRequest{Page: 1, PerPage: 50})
		req.NoError(err)
		req.Len(page.Items, 50)
		for i, msg := range page.Items {
			req.Equal(int64(i+1), msg.Position)
		}
	})
}

func TestMessageRepository_PageForChannel(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	repo, channel, sender := newMessageFixture(t)

	for i := 1; i <= 5; i++ {
		_, err := repo.Append(ctx, channel.ID, sender, fmt.Sprintf("m%d", i))
		req.NoError(err)
	}

	// When paging 5 messages by 2
	var contents []string
	for page := 1; page <= 3; page++ {
		got, err := repo.PageForChannel(ctx, channel.ID, models.PageRequest{Page: page, PerPage: 2})
		req.NoError(err)
		req.Equal(5, got.Total)
		req.Equal(3, got.LastPage)

		for _, msg := range got.Items {
			contents = append(contents, msg.Content)
		}
	}

	// Then all messages come back oldest first
	req.Equal([]string{"m1", "m2", "m3", "m4", "m5"}, contents)

	empty, err := repo.PageForChannel(ctx, uuid.New(), models.PageRequest{Page: 1, PerPage: 2})
	req.NoError(err)
	req.Empty(empty.Items)
	req.Equal(1, empty.LastPage)
}

func TestMessageRepository_MarkRead(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	repo, channel, sender := newMessageFixture(t)

	msg, err := repo.Append(ctx, channel.ID, sender, "hi")
	req.NoError(err)

	first, err := repo.MarkRead(ctx, msg.ID)
	req.NoError(err)
	req.True(first.IsRead())

	// Повторная отметка не меняет время
	second, err := repo.MarkRead(ctx, msg.ID)
	req.NoError(err)
	req.Equal(*first.ReadAt, *second.ReadAt)

	stored, err := repo.GetByID(ctx, msg.ID)
	req.NoError(err)
	req.True(stored.IsRead())

	_, err = repo.MarkRead(ctx, msg.ID+100)
	req.ErrorIs(err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, msg.ID+100)
	req.ErrorIs(err, domain.ErrNotFound)
}
