package mongo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"devlink/internal/app/chatsync"
	domainchat "devlink/internal/domain/chat"
)

// Publisher receives a best-effort notification after every persisted
// message.
type Publisher interface {
	PublishMessageCreated(ctx context.Context, ev chatsync.MessageEvent) error
}

// Store implements the chat transport's data operations over Mongo
// collections. Get-or-create relies on a unique index over the sorted user
// pair, so exactly one conversation can exist per pair.
type Store struct {
	conversations *mongo.Collection
	participants  *mongo.Collection
	messages      *mongo.Collection
	profiles      *mongo.Collection
	publisher     Publisher
	logger        *slog.Logger
}

func NewStore(db *mongo.Database, publisher Publisher, logger *slog.Logger) *Store {
	s := &Store{
		conversations: db.Collection("chat_conversations"),
		participants:  db.Collection("chat_participants"),
		messages:      db.Collection("chat_messages"),
		profiles:      db.Collection("profiles"),
		publisher:     publisher,
		logger:        logger,
	}
	ctx := context.Background()
	_, _ = s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = s.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return s
}

type conversationDocument struct {
	ID        string `bson:"_id"`
	PairKey   string `bson:"pair_key"`
	UserA     string `bson:"user_a"`
	UserB     string `bson:"user_b"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

type participantDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	UserID         string `bson:"user_id"`
	LastReadAt     int64  `bson:"last_read_at"`
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	Content        string `bson:"content"`
	CreatedAt      int64  `bson:"created_at"`
}

type profileDocument struct {
	ID          string `bson:"_id"`
	Username    string `bson:"username"`
	DisplayName string `bson:"display_name"`
	AvatarURL   string `bson:"avatar_url"`
}

func (d profileDocument) toSnapshot() domainchat.ProfileSnapshot {
	return domainchat.ProfileSnapshot{
		UserID:      d.ID,
		Username:    d.Username,
		DisplayName: d.DisplayName,
		AvatarURL:   d.AvatarURL,
	}
}

// pairKey is order-insensitive so both (a,b) and (b,a) address the same
// conversation.
func pairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

func (s *Store) ConversationSummaries(ctx context.Context, userID string) ([]chatsync.ConversationSummary, error) {
	filter := bson.M{"$or": bson.A{bson.M{"user_a": userID}, bson.M{"user_b": userID}}}
	cursor, err := s.conversations.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []conversationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	summaries := make([]chatsync.ConversationSummary, 0, len(docs))
	for _, doc := range docs {
		otherID := doc.UserA
		if otherID == userID {
			otherID = doc.UserB
		}
		summaries = append(summaries, chatsync.ConversationSummary{
			ConversationID: doc.ID,
			OtherUserID:    otherID,
			CreatedAt:      timestampToTime(doc.CreatedAt),
			UpdatedAt:      timestampToTime(doc.UpdatedAt),
		})
	}
	return summaries, nil
}

func (s *Store) LatestMessage(ctx context.Context, conversationID string) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDocument
	err := s.messages.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	msg, err := s.decorateMessage(ctx, doc, nil)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	marker, err := s.ReadMarker(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": userID},
		"created_at":      bson.M{"$gt": marker.UnixMilli()},
	}
	n, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) TotalUnreadCount(ctx context.Context, userID string) (int, error) {
	cursor, err := s.participants.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	var docs []participantDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, err
	}
	total := 0
	for _, doc := range docs {
		filter := bson.M{
			"conversation_id": doc.ConversationID,
			"sender_id":       bson.M{"$ne": userID},
			"created_at":      bson.M{"$gt": doc.LastReadAt},
		}
		n, err := s.messages.CountDocuments(ctx, filter)
		if err != nil {
			return 0, err
		}
		total += int(n)
	}
	return total, nil
}

func (s *Store) ReadMarker(ctx context.Context, conversationID, userID string) (time.Time, error) {
	var doc participantDocument
	err := s.participants.FindOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID}).Decode(&doc)
	if err != nil {
		return time.Time{}, err
	}
	return timestampToTime(doc.LastReadAt), nil
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]domainchat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	markers, err := s.readMarkers(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	profileCache := make(map[string]domainchat.ProfileSnapshot)
	msgs := make([]domainchat.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := s.decorateMessage(ctx, doc, profileCache)
		if err != nil {
			return nil, err
		}
		// Read iff the recipient's marker has passed the message.
		for uid, marker := range markers {
			if uid != doc.SenderID {
				msg.IsRead = !marker.Before(msg.CreatedAt)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *Store) Profile(ctx context.Context, userID string) (domainchat.ProfileSnapshot, error) {
	var doc profileDocument
	if err := s.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domainchat.ProfileSnapshot{}, err
	}
	return doc.toSnapshot(), nil
}

func (s *Store) SendMessage(ctx context.Context, conversationID, senderID, content string) (domainchat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domainchat.Message{}, &domainchat.PersistenceError{Op: "send message", Err: errors.New("empty content")}
	}
	now := time.Now().UTC()
	doc := messageDocument{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now.UnixMilli(),
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return domainchat.Message{}, &domainchat.PersistenceError{Op: "send message", Err: err}
	}
	// updated_at mirrors the newest message; $max keeps it monotonic under
	// concurrent sends.
	_, err := s.conversations.UpdateByID(ctx, conversationID, bson.M{"$max": bson.M{"updated_at": doc.CreatedAt}})
	if err != nil && s.logger != nil {
		s.logger.Warn("conversation timestamp bump failed", "conversation_id", conversationID, "error", err)
	}

	msg, err := s.decorateMessage(ctx, doc, nil)
	if err != nil {
		msg = doc.toMessage()
	}

	ev := chatsync.MessageEvent{
		MessageID:      doc.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		CreatedAt:      now,
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMessageCreated(ctx, ev); err != nil && s.logger != nil {
			s.logger.Warn("message event publish failed", "conversation_id", conversationID, "error", err)
		}
	}
	return msg, nil
}

func (s *Store) MarkRead(ctx context.Context, conversationID, userID string) error {
	now := time.Now().UTC().UnixMilli()
	filter := bson.M{"conversation_id": conversationID, "user_id": userID}
	// $max: the marker only ever advances.
	res, err := s.participants.UpdateOne(ctx, filter, bson.M{"$max": bson.M{"last_read_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) GetOrCreateConversation(ctx context.Context, userA, userB string) (string, error) {
	if userA == userB {
		return "", errors.New("mongo: conversation requires two distinct users")
	}
	key := pairKey(userA, userB)
	now := time.Now().UTC().UnixMilli()
	first, second := userA, userB
	if second < first {
		first, second = second, first
	}
	update := bson.M{"$setOnInsert": conversationDocument{
		ID:        uuid.NewString(),
		PairKey:   key,
		UserA:     first,
		UserB:     second,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc conversationDocument
	if err := s.conversations.FindOneAndUpdate(ctx, bson.M{"pair_key": key}, update, opts).Decode(&doc); err != nil {
		return "", err
	}
	for _, uid := range []string{userA, userB} {
		filter := bson.M{"conversation_id": doc.ID, "user_id": uid}
		participantUpdate := bson.M{"$setOnInsert": participantDocument{
			ID:             uuid.NewString(),
			ConversationID: doc.ID,
			UserID:         uid,
			LastReadAt:     0,
		}}
		if _, err := s.participants.UpdateOne(ctx, filter, participantUpdate, options.Update().SetUpsert(true)); err != nil {
			return "", err
		}
	}
	return doc.ID, nil
}

// ConversationMembers returns the two participant user ids. Used by the
// realtime hub for push fan-out.
func (s *Store) ConversationMembers(ctx context.Context, conversationID string) ([]string, error) {
	var doc conversationDocument
	if err := s.conversations.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc); err != nil {
		return nil, err
	}
	return []string{doc.UserA, doc.UserB}, nil
}

func (s *Store) readMarkers(ctx context.Context, conversationID string) (map[string]time.Time, error) {
	cursor, err := s.participants.Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	var docs []participantDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	markers := make(map[string]time.Time, len(docs))
	for _, doc := range docs {
		markers[doc.UserID] = timestampToTime(doc.LastReadAt)
	}
	return markers, nil
}

func (s *Store) decorateMessage(ctx context.Context, doc messageDocument, cache map[string]domainchat.ProfileSnapshot) (domainchat.Message, error) {
	msg := doc.toMessage()
	if cache != nil {
		if snap, ok := cache[doc.SenderID]; ok {
			msg.Sender = snap
			return msg, nil
		}
	}
	snap, err := s.Profile(ctx, doc.SenderID)
	if err != nil {
		return msg, err
	}
	if cache != nil {
		cache[doc.SenderID] = snap
	}
	msg.Sender = snap
	return msg, nil
}

func (d messageDocument) toMessage() domainchat.Message {
	return domainchat.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        d.Content,
		CreatedAt:      timestampToTime(d.CreatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
