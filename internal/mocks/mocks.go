package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"freeshare/internal/events"
	"freeshare/internal/models"
	"freeshare/internal/oauth"
	"freeshare/internal/repositories"
	"freeshare/internal/storage"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FindByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FindByProvider(ctx context.Context, provider, providerID string) (models.User, error) {
	args := m.Called(ctx, provider, providerID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Create(ctx context.Context, in models.UserCreate) (models.User, error) {
	args := m.Called(ctx, in)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Update(ctx context.Context, id string, in models.UserUpdate) (models.User, error) {
	args := m.Called(ctx, id, in)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) TouchLastActive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ItemRepositoryMock struct {
	mock.Mock
}

func (m *ItemRepositoryMock) FindByID(ctx context.Context, id, currentUserID string) (models.Item, error) {
	args := m.Called(ctx, id, currentUserID)
	var item models.Item
	if val := args.Get(0); val != nil {
		item = val.(models.Item)
	}
	return item, args.Error(1)
}

func (m *ItemRepositoryMock) FindAll(ctx context.Context, filters models.ItemFilters, currentUserID string) ([]models.Item, int, error) {
	args := m.Called(ctx, filters, currentUserID)
	var items []models.Item
	if val := args.Get(0); val != nil {
		items = val.([]models.Item)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *ItemRepositoryMock) Create(ctx context.Context, userID string, in models.ItemCreate) (models.Item, error) {
	args := m.Called(ctx, userID, in)
	var item models.Item
	if val := args.Get(0); val != nil {
		item = val.(models.Item)
	}
	return item, args.Error(1)
}

func (m *ItemRepositoryMock) Update(ctx context.Context, id, userID string, in models.ItemUpdate) (models.Item, error) {
	args := m.Called(ctx, id, userID, in)
	var item models.Item
	if val := args.Get(0); val != nil {
		item = val.(models.Item)
	}
	return item, args.Error(1)
}

func (m *ItemRepositoryMock) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *ItemRepositoryMock) Save(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *ItemRepositoryMock) Unsave(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *ItemRepositoryMock) ListSaved(ctx context.Context, userID string, limit, offset int) ([]models.Item, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	var items []models.Item
	if val := args.Get(0); val != nil {
		items = val.([]models.Item)
	}
	return items, args.Int(1), args.Error(2)
}

func (m *ItemRepositoryMock) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateConversation(ctx context.Context, itemID, senderID, participantID, content string) (models.Conversation, models.Message, bool, error) {
	args := m.Called(ctx, itemID, senderID, participantID, content)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var msg models.Message
	if val := args.Get(1); val != nil {
		msg = val.(models.Message)
	}
	return conv, msg, args.Bool(2), args.Error(3)
}

func (m *ConversationRepositoryMock) FindByID(ctx context.Context, id, userID string) (models.Conversation, error) {
	args := m.Called(ctx, id, userID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Int(1), args.Error(2)
}

func (m *ConversationRepositoryMock) ListMessages(ctx context.Context, conversationID, userID string, limit, offset int) ([]models.Message, int, error) {
	args := m.Called(ctx, conversationID, userID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Int(1), args.Error(2)
}

func (m *ConversationRepositoryMock) CreateMessage(ctx context.Context, conversationID, senderID, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ConversationRepositoryMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateSession(ctx context.Context, token string) (models.User, error) {
	args := m.Called(ctx, token)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *AuthServiceMock) RevokeSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *AuthServiceMock) HandleOAuthCallback(ctx context.Context, provider string, profile models.OAuthProfile) (models.User, models.AuthSession, error) {
	args := m.Called(ctx, provider, profile)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	var session models.AuthSession
	if val := args.Get(1); val != nil {
		session = val.(models.AuthSession)
	}
	return user, session, args.Error(2)
}

func (m *AuthServiceMock) CreateDemoUser(ctx context.Context, name string) (models.User, models.AuthSession, error) {
	args := m.Called(ctx, name)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	var session models.AuthSession
	if val := args.Get(1); val != nil {
		session = val.(models.AuthSession)
	}
	return user, session, args.Error(2)
}

type OAuthFlowMock struct {
	mock.Mock
}

func (m *OAuthFlowMock) Enabled(p oauth.Provider) bool {
	return m.Called(p).Bool(0)
}

func (m *OAuthFlowMock) AuthURL(p oauth.Provider) (string, error) {
	args := m.Called(p)
	return args.String(0), args.Error(1)
}

func (m *OAuthFlowMock) Exchange(ctx context.Context, p oauth.Provider, code, state string) (models.OAuthProfile, error) {
	args := m.Called(ctx, p, code, state)
	var profile models.OAuthProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.OAuthProfile)
	}
	return profile, args.Error(1)
}

type EmitterMock struct {
	mock.Mock
}

func (m *EmitterMock) Emit(ctx context.Context, eventType, requestID, userID string, payload any) {
	m.Called(ctx, eventType, requestID, userID, payload)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastMessage(conversationID string, msg models.Message) {
	m.Called(conversationID, msg)
}

func (m *BroadcasterMock) BroadcastRead(conversationID, readerID string) {
	m.Called(conversationID, readerID)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) PresignUpload(ctx context.Context, contentType string) (storage.Upload, error) {
	args := m.Called(ctx, contentType)
	var up storage.Upload
	if val := args.Get(0); val != nil {
		up = val.(storage.Upload)
	}
	return up, args.Error(1)
}

// PublisherMock stands in for the event broker.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}

var _ events.Publisher = (*PublisherMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ItemRepository = (*ItemRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ interface {
	ValidateSession(context.Context, string) (models.User, error)
	RevokeSession(context.Context, string) error
	HandleOAuthCallback(context.Context, string, models.OAuthProfile) (models.User, models.AuthSession, error)
	CreateDemoUser(context.Context, string) (models.User, models.AuthSession, error)
} = (*AuthServiceMock)(nil)
var _ interface {
	Enabled(oauth.Provider) bool
	AuthURL(oauth.Provider) (string, error)
	Exchange(context.Context, oauth.Provider, string, string) (models.OAuthProfile, error)
} = (*OAuthFlowMock)(nil)
var _ interface {
	Emit(context.Context, string, string, string, any)
} = (*EmitterMock)(nil)
var _ interface {
	BroadcastMessage(string, models.Message)
	BroadcastRead(string, string)
} = (*BroadcasterMock)(nil)
var _ interface {
	PresignUpload(context.Context, string) (storage.Upload, error)
} = (*UploaderMock)(nil)
