package dto

import "time"

// Profile is the denormalized participant identity.
type Profile struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Participant carries a membership record and its read marker.
type Participant struct {
	UserID     string    `json:"user_id"`
	Profile    Profile   `json:"profile"`
	LastReadAt time.Time `json:"last_read_at"`
}

// Message contains a single message payload.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
	Sender         Profile   `json:"sender"`
}

// Conversation describes a two-party thread as rendered in the list.
type Conversation struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Self        Participant `json:"self"`
	Other       Participant `json:"other"`
	LastMessage *Message    `json:"last_message,omitempty"`
	UnreadCount int         `json:"unread_count"`
}

// ConversationList is the synchronized state exposed to the presentation
// layer: the full list, the filtered view, and the list-level error state.
type ConversationList struct {
	Items           []Conversation `json:"items"`
	Filtered        []Conversation `json:"filtered"`
	Query           string         `json:"query,omitempty"`
	Loading         bool           `json:"loading"`
	Error           string         `json:"error,omitempty"`
	InitialSyncDone bool           `json:"initial_sync_done"`
	TotalUnread     int            `json:"total_unread"`
}

// MessageDayGroup partitions pane messages by calendar day for display.
type MessageDayGroup struct {
	Day      time.Time `json:"day"`
	Messages []Message `json:"messages"`
}

// MessagePane is the open conversation's message state.
type MessagePane struct {
	ConversationID string            `json:"conversation_id,omitempty"`
	State          string            `json:"state"`
	Error          string            `json:"error,omitempty"`
	Groups         []MessageDayGroup `json:"groups"`
}
