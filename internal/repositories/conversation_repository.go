package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"freeshare/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// ConversationRepository abstracts conversation and message persistence.
// Callers outside a conversation always see ErrConversationNotFound.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, itemID, senderID, participantID, content string) (models.Conversation, models.Message, bool, error)
	FindByID(ctx context.Context, id, userID string) (models.Conversation, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, int, error)
	ListMessages(ctx context.Context, conversationID, userID string, limit, offset int) ([]models.Message, int, error)
	CreateMessage(ctx context.Context, conversationID, senderID, content string) (models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db, now: systemClock}
}

type conversationRow struct {
	ID                 string     `db:"id"`
	ItemID             string     `db:"item_id"`
	UserAID            string     `db:"user_a_id"`
	UserBID            string     `db:"user_b_id"`
	LastMessageContent *string    `db:"last_message_content"`
	LastMessageAt      *time.Time `db:"last_message_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	UnreadCount        int        `db:"unread_count"`
}

type conversationItemRow struct {
	ID     string            `db:"id"`
	Title  string            `db:"title"`
	Images models.StringList `db:"images"`
	Status models.ItemStatus `db:"status"`
}

// conversationColumns expects the viewer id as its only bind argument.
const conversationColumns = `c.id, c.item_id, c.user_a_id, c.user_b_id, c.last_message_content,
	c.last_message_at, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM messages m
	  WHERE m.conversation_id = c.id AND m.sender_id <> ? AND m.read_at IS NULL) AS unread_count`

// canonicalPair orders two user ids so that a < b.
func canonicalPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}

// CreateConversation starts a conversation about itemID between senderID and
// participantID, or reuses the existing one for that item and pair, and
// appends content as a message from senderID. The returned bool is true when
// a new conversation row was inserted.
func (r *ConversationRepo) CreateConversation(ctx context.Context, itemID, senderID, participantID, content string) (models.Conversation, models.Message, bool, error) {
	if senderID == participantID {
		return models.Conversation{}, models.Message{}, false, ErrSelfConversation
	}
	userA, userB := canonicalPair(senderID, participantID)
	now := r.now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO conversations
		(id, item_id, user_a_id, user_b_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id, user_a_id, user_b_id) DO NOTHING`),
		newID(), itemID, userA, userB, now, now)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("insert conversation: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("insert conversation: %w", err)
	}

	var conversationID string
	err = tx.GetContext(ctx, &conversationID, tx.Rebind(`SELECT id FROM conversations
		WHERE item_id = ? AND user_a_id = ? AND user_b_id = ?`), itemID, userA, userB)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("select conversation: %w", err)
	}

	msg, err := r.insertMessage(ctx, tx, conversationID, senderID, content, now)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("commit: %w", err)
	}

	conv, err := r.FindByID(ctx, conversationID, senderID)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}
	msg.Sender = r.senderSummary(ctx, conv, senderID)
	return conv, msg, inserted == 1, nil
}

// insertMessage stores a message and refreshes the conversation's
// last-message snapshot inside tx.
func (r *ConversationRepo) insertMessage(ctx context.Context, tx *sqlx.Tx, conversationID, senderID, content string, at time.Time) (models.Message, error) {
	msg := models.Message{
		ID:             newID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`), msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE conversations
		SET last_message_content = ?, last_message_at = ?, updated_at = ?
		WHERE id = ?`), content, at, at, conversationID)
	if err != nil {
		return models.Message{}, fmt.Errorf("update conversation snapshot: %w", err)
	}
	return msg, nil
}

// FindByID returns the conversation if userID takes part in it.
func (r *ConversationRepo) FindByID(ctx context.Context, id, userID string) (models.Conversation, error) {
	var row conversationRow
	query := r.db.Rebind(`SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.id = ? AND (c.user_a_id = ? OR c.user_b_id = ?)`)
	err := r.db.GetContext(ctx, &row, query, userID, id, userID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("find conversation: %w", err)
	}
	convs, err := r.decorate(ctx, []conversationRow{row})
	if err != nil {
		return models.Conversation{}, err
	}
	return convs[0], nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM conversations
		WHERE user_a_id = ? OR user_b_id = ?`), userID, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	limit, offset = models.ClampPage(limit, offset, models.DefaultPageSize)
	var rows []conversationRow
	query := r.db.Rebind(`SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.user_a_id = ? OR c.user_b_id = ?
		ORDER BY c.updated_at DESC, c.id
		LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, userID, userID, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	convs, err := r.decorate(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// decorate resolves item snapshots and participant summaries in batch.
func (r *ConversationRepo) decorate(ctx context.Context, rows []conversationRow) ([]models.Conversation, error) {
	convs := make([]models.Conversation, 0, len(rows))
	if len(rows) == 0 {
		return convs, nil
	}

	userSet := make(map[string]struct{})
	itemSet := make(map[string]struct{})
	for _, row := range rows {
		userSet[row.UserAID] = struct{}{}
		userSet[row.UserBID] = struct{}{}
		itemSet[row.ItemID] = struct{}{}
	}

	summaries, err := listSummaries(ctx, r.db, keys(userSet))
	if err != nil {
		return nil, err
	}
	users := make(map[string]models.UserSummary, len(summaries))
	for _, s := range summaries {
		users[s.ID] = s
	}

	query, args, err := sqlx.In(`SELECT id, title, images, status FROM items WHERE id IN (?)`, keys(itemSet))
	if err != nil {
		return nil, err
	}
	var itemRows []conversationItemRow
	if err := r.db.SelectContext(ctx, &itemRows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load conversation items: %w", err)
	}
	items := make(map[string]models.ConversationItem, len(itemRows))
	for _, it := range itemRows {
		images := it.Images
		if images == nil {
			images = models.StringList{}
		}
		items[it.ID] = models.ConversationItem{ID: it.ID, Title: it.Title, Images: images, Status: it.Status}
	}

	for _, row := range rows {
		conv := models.Conversation{
			ID:                 row.ID,
			ItemID:             row.ItemID,
			UserAID:            row.UserAID,
			UserBID:            row.UserBID,
			ParticipantIDs:     []string{row.UserAID, row.UserBID},
			LastMessageContent: row.LastMessageContent,
			LastMessageAt:      row.LastMessageAt,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
			UnreadCount:        row.UnreadCount,
			Participants:       []models.UserSummary{},
		}
		if it, ok := items[row.ItemID]; ok {
			it := it
			conv.Item = &it
		}
		for _, id := range conv.ParticipantIDs {
			if u, ok := users[id]; ok {
				conv.Participants = append(conv.Participants, u)
			}
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// ListMessages returns messages oldest first.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID, userID string, limit, offset int) ([]models.Message, int, error) {
	conv, err := r.FindByID(ctx, conversationID, userID)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`), conversationID)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	limit, offset = models.ClampPage(limit, offset, models.DefaultMessagePage)
	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs, r.db.Rebind(`SELECT id, conversation_id, sender_id, content, read_at, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id
		LIMIT ? OFFSET ?`), conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	for i := range msgs {
		msgs[i].Sender = participantSummary(conv, msgs[i].SenderID)
	}
	return msgs, total, nil
}

// CreateMessage appends a message from senderID, who must be a participant.
func (r *ConversationRepo) CreateMessage(ctx context.Context, conversationID, senderID, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	err = tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM conversations
		WHERE id = ? AND (user_a_id = ? OR user_b_id = ?)`), conversationID, senderID, senderID)
	if err != nil {
		return models.Message{}, fmt.Errorf("check participant: %w", err)
	}
	if n == 0 {
		return models.Message{}, ErrConversationNotFound
	}

	msg, err := r.insertMessage(ctx, tx, conversationID, senderID, content, r.now())
	if err != nil {
		return models.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, fmt.Errorf("commit: %w", err)
	}

	summaries, err := listSummaries(ctx, r.db, []string{senderID})
	if err == nil && len(summaries) == 1 {
		msg.Sender = &summaries[0]
	}
	return msg, nil
}

// MarkRead stamps read_at on the counterpart's unread messages. The caller's
// own messages are never touched.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	ok, err := r.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrConversationNotFound
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE messages SET read_at = ?
		WHERE conversation_id = ? AND sender_id <> ? AND read_at IS NULL`), r.now(), conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount counts messages addressed to userID that are still unread.
func (r *ConversationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user_a_id = ? OR c.user_b_id = ?) AND m.sender_id <> ? AND m.read_at IS NULL`),
		userID, userID, userID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// IsParticipant reports whether userID takes part in the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM conversations
		WHERE id = ? AND (user_a_id = ? OR user_b_id = ?))`), conversationID, userID, userID)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return ok, nil
}

func (r *ConversationRepo) senderSummary(ctx context.Context, conv models.Conversation, senderID string) *models.UserSummary {
	if s := participantSummary(conv, senderID); s != nil {
		return s
	}
	summaries, err := listSummaries(ctx, r.db, []string{senderID})
	if err != nil || len(summaries) == 0 {
		return nil
	}
	return &summaries[0]
}

func participantSummary(conv models.Conversation, userID string) *models.UserSummary {
	for i := range conv.Participants {
		if conv.Participants[i].ID == userID {
			s := conv.Participants[i]
			return &s
		}
	}
	return nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
