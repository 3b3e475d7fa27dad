package models

import "github.com/google/uuid"

// Principal - аутентифицированный пользователь, от имени которого выполняется операция.
type Principal struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}
