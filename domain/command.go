package domain

// JoinRequest is the payload of a join frame.
type JoinRequest struct {
	Room string `json:"room" validate:"required"`
}

// SendRequest is the payload of a sendMessage frame.
type SendRequest struct {
	Content   string `json:"content" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=text file img"`
	ObjectURL string `json:"objectUrl,omitempty" validate:"required_unless=Type text"`
	Size      string `json:"size,omitempty"`
	Room      string `json:"room" validate:"required"`
	ChannelID string `json:"channelId" validate:"required,numeric"`
}
