package chatsync

import (
	"strings"

	domainchat "devlink/internal/domain/chat"
)

// Search filters the synchronized list by the other participant's username
// and display name, case-insensitive substring. It is pure over cached state
// and never touches the network. An empty query yields the full list. The
// query sticks: every republish re-applies it.
func (e *Engine) Search(query string) []domainchat.Conversation {
	e.mu.Lock()
	e.query = query
	e.filtered = filterConversations(e.conversations, query)
	out := copyConversations(e.filtered)
	e.mu.Unlock()
	return out
}

func filterConversations(list []domainchat.Conversation, query string) []domainchat.Conversation {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]domainchat.Conversation(nil), list...)
	}
	needle := strings.ToLower(query)
	filtered := make([]domainchat.Conversation, 0, len(list))
	for _, conv := range list {
		profile := conv.Other.Profile
		if strings.Contains(strings.ToLower(profile.Username), needle) ||
			strings.Contains(strings.ToLower(profile.DisplayName), needle) {
			filtered = append(filtered, conv)
		}
	}
	return filtered
}
