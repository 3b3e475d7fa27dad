package input

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomChat/internal/domain"
)

func TestCreateChannelInput_Validate(t *testing.T) {
	t.Run("should accept a valid input and trim fields", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{
			CreatorID:   uuid.New(),
			Name:        "  general  ",
			Description: " chat ",
			Visibility:  "public",
		}

		req.NoError(in.Validate())
		req.Equal("general", in.Name)
		req.Equal("chat", in.Description)
	})

	t.Run("should reject blank name", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{CreatorID: uuid.New(), Name: "   "}

		err := in.Validate()

		req.ErrorIs(err, domain.ErrValidation)
		fields, ok := domain.FieldErrors(err)
		req.True(ok)
		req.Equal([]string{"is required"}, fields["name"])
	})

	t.Run("should reject too long name and description", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{
			CreatorID:   uuid.New(),
			Name:        strings.Repeat("n", 101),
			Description: strings.Repeat("d", 501),
		}

		err := in.Validate()

		fields, ok := domain.FieldErrors(err)
		req.True(ok)
		req.Equal([]string{"must be at most 100 characters"}, fields["name"])
		req.Equal([]string{"must be at most 500 characters"}, fields["description"])
	})

	t.Run("should count runes not bytes", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{CreatorID: uuid.New(), Name: strings.Repeat("я", 100)}

		req.NoError(in.Validate())
	})

	t.Run("should reject unknown visibility", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{CreatorID: uuid.New(), Name: "x", Visibility: "secret"}

		fields, ok := domain.FieldErrors(in.Validate())
		req.True(ok)
		req.Equal([]string{"must be one of: public private"}, fields["visibility"])
	})

	t.Run("should require creator", func(t *testing.T) {
		req := require.New(t)
		in := &CreateChannelInput{Name: "x"}

		fields, ok := domain.FieldErrors(in.Validate())
		req.True(ok)
		req.Contains(fields, "creator_id")
	})
}

func TestNormalizeContent(t *testing.T) {
	t.Run("should trim content", func(t *testing.T) {
		req := require.New(t)

		content, err := NormalizeContent("  hi  ", 10)

		req.NoError(err)
		req.Equal("hi", content)
	})

	t.Run("should reject empty content", func(t *testing.T) {
		req := require.New(t)

		_, err := NormalizeContent(" \n\t ", 10)

		req.True(errors.Is(err, domain.ErrValidation))
		fields, _ := domain.FieldErrors(err)
		req.Equal([]string{"is required"}, fields["content"])
	})

	t.Run("should reject content over the limit", func(t *testing.T) {
		req := require.New(t)

		_, err := NormalizeContent(strings.Repeat("x", 11), 10)

		fields, ok := domain.FieldErrors(err)
		req.True(ok)
		req.Equal([]string{"must be at most 10 characters"}, fields["content"])
	})
}
