package chat

import (
	"sort"
	"time"
)

// ProfileSnapshot is the denormalized identity attached to participants and
// message senders. It is a point-in-time copy, not a live reference.
type ProfileSnapshot struct {
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Participant is a user's membership record within a conversation. LastReadAt
// only moves forward and is mutated exclusively through mark-read.
type Participant struct {
	UserID     string
	Profile    ProfileSnapshot
	LastReadAt time.Time
}

// Message is immutable once created except for IsRead, which the store
// computes relative to the reader.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
	IsRead         bool
	Sender         ProfileSnapshot
}

// Conversation is a two-party thread. The participant set never changes after
// creation; there is no group chat.
type Conversation struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Self        Participant
	Other       Participant
	LastMessage *Message
	UnreadCount int
}

// EffectiveTime is the sort key for conversation lists: the last message's
// timestamp when one exists, otherwise the conversation's UpdatedAt.
func (c Conversation) EffectiveTime() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.CreatedAt
	}
	return c.UpdatedAt
}

// SortByRecency orders conversations descending by EffectiveTime, most recent
// first. The sort is stable so equal timestamps keep their assembly order.
func SortByRecency(list []Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].EffectiveTime().After(list[j].EffectiveTime())
	})
}

// SortMessages orders messages ascending by CreatedAt with ID as tiebreak.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// DayGroup is a display partition of messages sharing a calendar day.
type DayGroup struct {
	Day      time.Time // midnight, message-local
	Messages []Message
}

// GroupMessagesByDay partitions an ordered message list by calendar day of
// CreatedAt. Input order is preserved across and within groups.
func GroupMessagesByDay(msgs []Message) []DayGroup {
	var groups []DayGroup
	for _, m := range msgs {
		day := time.Date(m.CreatedAt.Year(), m.CreatedAt.Month(), m.CreatedAt.Day(), 0, 0, 0, 0, m.CreatedAt.Location())
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, DayGroup{Day: day, Messages: []Message{m}})
	}
	return groups
}
