package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"devlink/internal/app/chatsync"
	"devlink/internal/app/dto"
	domainchat "devlink/internal/domain/chat"
)

// ChatHTTP exposes the conversation sync endpoints.
type ChatHTTP interface {
	ListConversations(c *gin.Context)
	Resync(c *gin.Context)
	Retry(c *gin.Context)
	StartConversation(c *gin.Context)
	SetCurrent(c *gin.Context)
	GetMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	TotalUnread(c *gin.Context)
}

// ChatHandler bridges HTTP with the per-user sync engines.
type ChatHandler struct {
	Engines *chatsync.Manager
	Logger  *slog.Logger
}

func (h ChatHandler) engine(c *gin.Context) (*chatsync.Engine, bool) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
		return nil, false
	}
	eng := h.Engines.Engine(c.Request.Context(), userID)
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return nil, false
	}
	return eng, true
}

// ListConversations returns the synchronized list. An optional q parameter
// applies the participant filter before the snapshot is taken.
func (h ChatHandler) ListConversations(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	if query, present := c.GetQuery("q"); present {
		eng.Search(query)
	}
	c.JSON(http.StatusOK, snapshotToList(eng.Snapshot()))
}

// Resync triggers a full list rebuild. Overlapping calls are dropped by the
// engine, which is fine: the response always carries the latest snapshot.
func (h ChatHandler) Resync(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	if err := eng.Resync(c.Request.Context()); err != nil {
		var fetchErr *domainchat.FetchError
		if errors.As(err, &fetchErr) {
			c.JSON(http.StatusBadGateway, snapshotToList(eng.Snapshot()))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshotToList(eng.Snapshot()))
}

// Retry backs the fetch-error retry affordance: a short pause, then resync.
func (h ChatHandler) Retry(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	if err := eng.Retry(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, snapshotToList(eng.Snapshot()))
		return
	}
	c.JSON(http.StatusOK, snapshotToList(eng.Snapshot()))
}

// StartConversation resolves or creates the thread for a user pair.
func (h ChatHandler) StartConversation(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	id, err := eng.StartConversation(c.Request.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		h.Logger.Error("start conversation failed", "user_id", eng.UserID(), "other_user_id", req.UserID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not start conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id})
}

// SetCurrent switches the open thread; an empty id clears the selection.
func (h ChatHandler) SetCurrent(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := eng.SetCurrentConversation(c.Request.Context(), strings.TrimSpace(req.ConversationID)); err != nil {
		// The pane carries the error state; surfacing it with the snapshot
		// lets the client render the errored pane with its own retry.
		c.JSON(http.StatusBadGateway, snapshotToPane(eng))
		return
	}
	c.JSON(http.StatusOK, snapshotToPane(eng))
}

// GetMessages returns the open conversation's pane, day-grouped.
func (h ChatHandler) GetMessages(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshotToPane(eng))
}

// SendMessage posts to the open conversation. Send failures surface to the
// caller; they are never retried server-side.
func (h ChatHandler) SendMessage(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	msg, err := eng.SendMessage(c.Request.Context(), req.Content)
	if err != nil {
		if errors.Is(err, domainchat.ErrNoConversation) {
			c.JSON(http.StatusConflict, gin.H{"error": "no conversation selected"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "message not sent"})
		return
	}
	c.JSON(http.StatusCreated, messageToDTO(msg))
}

// MarkRead advances the caller's read marker. Read state is best-effort, so
// the response is always accepted.
func (h ChatHandler) MarkRead(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
		return
	}
	eng.MarkConversationAsRead(c.Request.Context(), conversationID)
	c.Status(http.StatusAccepted)
}

// TotalUnread returns the platform-wide unread badge count.
func (h ChatHandler) TotalUnread(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_unread": eng.TotalUnread()})
}

func snapshotToList(snap chatsync.Snapshot) dto.ConversationList {
	return dto.ConversationList{
		Items:           conversationsToDTO(snap.Conversations),
		Filtered:        conversationsToDTO(snap.Filtered),
		Query:           snap.Query,
		Loading:         snap.ListLoading,
		Error:           snap.ListError,
		InitialSyncDone: snap.InitialSyncDone,
		TotalUnread:     snap.TotalUnread,
	}
}

func snapshotToPane(eng *chatsync.Engine) dto.MessagePane {
	snap := eng.Snapshot()
	groups := domainGroupsToDTO(eng.MessageGroups())
	return dto.MessagePane{
		ConversationID: snap.CurrentID,
		State:          string(snap.PaneState),
		Error:          snap.PaneError,
		Groups:         groups,
	}
}

func conversationsToDTO(list []domainchat.Conversation) []dto.Conversation {
	out := make([]dto.Conversation, 0, len(list))
	for _, conv := range list {
		item := dto.Conversation{
			ID:          conv.ID,
			CreatedAt:   conv.CreatedAt,
			UpdatedAt:   conv.UpdatedAt,
			Self:        participantToDTO(conv.Self),
			Other:       participantToDTO(conv.Other),
			UnreadCount: conv.UnreadCount,
		}
		if conv.LastMessage != nil {
			msg := messageToDTO(*conv.LastMessage)
			item.LastMessage = &msg
		}
		out = append(out, item)
	}
	return out
}

func domainGroupsToDTO(groups []domainchat.DayGroup) []dto.MessageDayGroup {
	out := make([]dto.MessageDayGroup, 0, len(groups))
	for _, g := range groups {
		msgs := make([]dto.Message, 0, len(g.Messages))
		for _, m := range g.Messages {
			msgs = append(msgs, messageToDTO(m))
		}
		out = append(out, dto.MessageDayGroup{Day: g.Day, Messages: msgs})
	}
	return out
}

func participantToDTO(p domainchat.Participant) dto.Participant {
	return dto.Participant{
		UserID:     p.UserID,
		Profile:    profileToDTO(p.Profile),
		LastReadAt: p.LastReadAt,
	}
}

func profileToDTO(p domainchat.ProfileSnapshot) dto.Profile {
	return dto.Profile{
		UserID:      p.UserID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}

func messageToDTO(m domainchat.Message) dto.Message {
	return dto.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
		Sender:         profileToDTO(m.Sender),
	}
}
