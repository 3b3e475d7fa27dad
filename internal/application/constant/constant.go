package constant

// Ключи атрибутов slog
const (
	Error     = "error"
	UserID    = "user_id"
	UserName  = "user_name"
	ChannelID = "channel_id"
	ConnID    = "conn_id"
	Topic     = "topic"
	MessageID = "message_id"
)
