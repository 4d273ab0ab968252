package ginserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"devlink/internal/app/chatsync"
	"devlink/internal/app/dto"
	domainchat "devlink/internal/domain/chat"
)

type stubTransport struct {
	summaries []chatsync.ConversationSummary
	latest    map[string]*domainchat.Message
}

func (s stubTransport) ConversationSummaries(context.Context, string) ([]chatsync.ConversationSummary, error) {
	return s.summaries, nil
}

func (s stubTransport) LatestMessage(_ context.Context, id string) (*domainchat.Message, error) {
	return s.latest[id], nil
}

func (s stubTransport) UnreadCount(context.Context, string, string) (int, error) { return 0, nil }

func (s stubTransport) TotalUnreadCount(context.Context, string) (int, error) { return 0, nil }

func (s stubTransport) ReadMarker(context.Context, string, string) (time.Time, error) {
	return time.Time{}, nil
}

func (s stubTransport) Messages(context.Context, string) ([]domainchat.Message, error) {
	return nil, nil
}

func (s stubTransport) Profile(_ context.Context, userID string) (domainchat.ProfileSnapshot, error) {
	return domainchat.ProfileSnapshot{UserID: userID, Username: userID}, nil
}

func (s stubTransport) SendMessage(context.Context, string, string, string) (domainchat.Message, error) {
	return domainchat.Message{ID: "m1"}, nil
}

func (s stubTransport) MarkRead(context.Context, string, string) error { return nil }

func (s stubTransport) GetOrCreateConversation(context.Context, string, string) (string, error) {
	return "c-pair", nil
}

func (s stubTransport) SubscribeNewMessages(func(chatsync.MessageEvent)) func() {
	return func() {}
}

func testRouter(t *testing.T, transport chatsync.Transport) (*gin.Engine, *chatsync.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := chatsync.NewManager(transport, logger, chatsync.Config{
		Retry: chatsync.RetryPolicy{
			MaxAttempts: 1,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		},
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(manager.Close)

	router := gin.New()
	h := ChatHandler{Engines: manager, Logger: logger}
	chat := router.Group("/api/v1/chat")
	chat.GET("/conversations", h.ListConversations)
	chat.POST("/conversations", h.StartConversation)
	chat.POST("/conversations/:id/read", h.MarkRead)
	chat.POST("/resync", h.Resync)
	chat.PUT("/current", h.SetCurrent)
	chat.POST("/messages", h.SendMessage)
	chat.GET("/unread", h.TotalUnread)
	return router, manager
}

func doRequest(router *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatHandler(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	transport := stubTransport{
		summaries: []chatsync.ConversationSummary{
			{
				ConversationID: "c1",
				OtherUserID:    "alice",
				CreatedAt:      base.Add(-time.Hour),
				UpdatedAt:      base,
			},
		},
		latest: map[string]*domainchat.Message{},
	}

	t.Run("identity header required", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodGet, "/api/v1/chat/conversations", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("list returns synchronized snapshot", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodGet, "/api/v1/chat/conversations", "self", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var list dto.ConversationList
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list.Items) != 1 || list.Items[0].ID != "c1" {
			t.Fatalf("items = %+v, want c1", list.Items)
		}
		if !list.InitialSyncDone {
			t.Fatal("initial sync should have completed")
		}
	})

	t.Run("search filter applied via query param", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodGet, "/api/v1/chat/conversations?q=zzz", "self", "")
		var list dto.ConversationList
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list.Filtered) != 0 {
			t.Fatalf("filtered = %+v, want empty", list.Filtered)
		}
		if len(list.Items) != 1 {
			t.Fatal("full list must stay intact under filtering")
		}
	})

	t.Run("send without open conversation conflicts", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodPost, "/api/v1/chat/messages", "self", `{"content":"hi"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("send after selecting a conversation", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodPut, "/api/v1/chat/current", "self", `{"conversation_id":"c1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("set current status = %d, want 200", rec.Code)
		}
		rec = doRequest(router, http.MethodPost, "/api/v1/chat/messages", "self", `{"content":"hi"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
	})

	t.Run("start conversation returns the pair id", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodPost, "/api/v1/chat/conversations", "self", `{"user_id":"alice"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp["conversation_id"] != "c-pair" {
			t.Fatalf("conversation_id = %q, want c-pair", resp["conversation_id"])
		}
	})

	t.Run("mark read is fire and forget", func(t *testing.T) {
		router, _ := testRouter(t, transport)
		rec := doRequest(router, http.MethodPost, "/api/v1/chat/conversations/c1/read", "self", "")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
	})
}
