package input

import (
	"strings"

	"github.com/google/uuid"
)

type CreateChannelInput struct {
	CreatorID   uuid.UUID `json:"creator_id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=500"`
	Visibility  string    `json:"visibility" validate:"omitempty,oneof=public private"`
}

// Normalize обрезает пробелы по краям строковых полей.
func (in *CreateChannelInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Visibility = strings.TrimSpace(in.Visibility)
}

func (in *CreateChannelInput) Validate() error {
	in.Normalize()

	return validateStruct(in)
}
