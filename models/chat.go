package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups query turns for conversation history.
type ChatSession struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChatMessage is a single turn in a session. Assistant messages carry the
// sources their answer was grounded on; user messages do not.
type ChatMessage struct {
	ID        string    `bson:"_id" json:"id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Sources   []Source  `bson:"sources,omitempty" json:"sources,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question    string   `json:"question" binding:"required"`
	SessionID   string   `json:"session_id"`
	TopK        int      `json:"top_k"`
	DocumentIDs []string `json:"document_ids"`
}

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
	Cached    bool     `json:"cached,omitempty"`
}

// SessionDetail is a session together with its full message history.
type SessionDetail struct {
	Session  ChatSession   `json:"session"`
	Messages []ChatMessage `json:"messages"`
}
