package dto

type BroadcastAuthRequest struct {
	ChannelName string `json:"channel_name"`
}

// BroadcastAuthResponse - presence описание, с которым транспорт допускает подписку
type BroadcastAuthResponse struct {
	ChannelName string `json:"channel_name"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
