package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"freeshare/internal/db"
	"freeshare/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.Migrate(ctx, database))
	return database
}

// stepClock returns a clock that moves forward one second per call so rows
// get strictly increasing timestamps.
func stepClock() Clock {
	var mu sync.Mutex
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

type fixture struct {
	db            *sqlx.DB
	users         *UserRepo
	sessions      *SessionRepo
	items         *ItemRepo
	conversations *ConversationRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := newTestDB(t)
	clock := stepClock()

	f := &fixture{
		db:            database,
		users:         NewUserRepo(database),
		sessions:      NewSessionRepo(database),
		items:         NewItemRepo(database),
		conversations: NewConversationRepo(database),
	}
	f.users.now = clock
	f.sessions.now = clock
	f.items.now = clock
	f.conversations.now = clock
	return f
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), models.UserCreate{
		Email:          name + "@example.com",
		Name:           name,
		AuthProvider:   "google",
		AuthProviderID: "g-" + name,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) item(t *testing.T, ownerID string, mutate func(*models.ItemCreate)) models.Item {
	t.Helper()
	in := models.ItemCreate{
		Title:       "Wooden chair",
		Description: "Sturdy oak chair, slightly scratched",
		Images:      models.StringList{"https://img.example.com/chair.jpg"},
		Category:    models.CategoryFurniture,
		Condition:   models.ConditionGood,
		LocationLat: 40.0,
		LocationLng: -75.0,
		City:        "Philadelphia",
		Zip:         "19104",
	}
	if mutate != nil {
		mutate(&in)
	}
	item, err := f.items.Create(context.Background(), ownerID, in)
	require.NoError(t, err)
	return item
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, f.db.Rebind(query), args...))
	return n
}
