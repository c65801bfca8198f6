package services

import (
	"context"
	"fmt"
	"time"

	"pdf-rag-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatService persists chat sessions and their message history in MongoDB.
type ChatService struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

func NewChatService(db *mongo.Database) *ChatService {
	return &ChatService{
		sessions: db.Collection("sessions"),
		messages: db.Collection("messages"),
	}
}

// GetOrCreateSession resolves a session id to a session, creating a fresh
// one when the id is empty or unknown. An unknown id is not an error; the
// client simply gets a new session back.
func (s *ChatService) GetOrCreateSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	if sessionID != "" {
		var session models.ChatSession
		err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
		if err == nil {
			return &session, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("failed to look up session: %v", err)
		}
	}

	now := time.Now()
	session := &models.ChatSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %v", err)
	}
	return session, nil
}

// AddMessage appends a message to a session and bumps the session's
// updated_at so recently active sessions sort first.
func (s *ChatService) AddMessage(ctx context.Context, sessionID, role, content string, sources []models.Source) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	if _, err := s.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"updated_at": msg.CreatedAt}},
	); err != nil {
		return nil, fmt.Errorf("failed to touch session: %v", err)
	}
	return msg, nil
}

// ListSessions returns the most recently active sessions.
func (s *ChatService) ListSessions(ctx context.Context, limit int) ([]models.ChatSession, error) {
	if limit <= 0 {
		limit = 20
	}
	cursor, err := s.sessions.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.ChatSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %v", err)
	}
	return sessions, nil
}

// GetSessionDetail returns a session with its full message history in
// chronological order. Returns mongo.ErrNoDocuments for unknown sessions.
func (s *ChatService) GetSessionDetail(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	var session models.ChatSession
	if err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session); err != nil {
		return nil, err
	}

	cursor, err := s.messages.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %v", err)
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}

	return &models.SessionDetail{Session: session, Messages: messages}, nil
}

// DeleteSession removes a session and all of its messages.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.sessions.DeleteOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete session messages: %v", err)
	}
	return nil
}
