package models

import "time"

// Conversation is a message thread about one item between two users.
// UserAID < UserBID always holds.
type Conversation struct {
	ID                 string            `json:"id"`
	ItemID             string            `json:"itemId"`
	UserAID            string            `json:"-"`
	UserBID            string            `json:"-"`
	ParticipantIDs     []string          `json:"participantIds"`
	LastMessageContent *string           `json:"lastMessageContent"`
	LastMessageAt      *time.Time        `json:"lastMessageAt"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	Item               *ConversationItem `json:"item,omitempty"`
	Participants       []UserSummary     `json:"participants,omitempty"`
	UnreadCount        int               `json:"unreadCount"`
}

// ConversationItem is the item snapshot shown alongside a conversation.
type ConversationItem struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Images StringList `json:"images"`
	Status ItemStatus `json:"status"`
}

// ConversationCreate is the body of POST /api/conversations.
type ConversationCreate struct {
	ItemID         string `json:"itemId" binding:"required"`
	ParticipantID  string `json:"participantId" binding:"required"`
	InitialMessage string `json:"initialMessage" binding:"required,max=4000"`
}

// Message is immutable apart from ReadAt moving from nil to set.
type Message struct {
	ID             string       `db:"id" json:"id"`
	ConversationID string       `db:"conversation_id" json:"conversationId"`
	SenderID       string       `db:"sender_id" json:"senderId"`
	Content        string       `db:"content" json:"content"`
	ReadAt         *time.Time   `db:"read_at" json:"readAt"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	Sender         *UserSummary `db:"-" json:"sender,omitempty"`
}

// MessageCreate is the body of POST /api/conversations/:id/messages.
type MessageCreate struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// ConversationEvent is pushed over websocket connections.
type ConversationEvent struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId"`
	Message        *Message `json:"message,omitempty"`
	ReaderID       string   `json:"readerId,omitempty"`
}
