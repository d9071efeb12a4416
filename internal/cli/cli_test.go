package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeshare/internal/auth"
	"freeshare/internal/config"
	"freeshare/internal/db"
	"freeshare/internal/handlers"
	"freeshare/internal/repositories"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, cmd.RunE)
}

func TestMigrateCommandCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "freeshare.db")

	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"migrate", "--driver", "sqlite3", "--dsn", dsn})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	database, err := db.Connect(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	defer database.Close()

	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 0, n)
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FREESHARE_CLI_TEST=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FREESHARE_CLI_TEST") })

	require.NoError(t, loadEnvFiles([]string{path}))
	assert.Equal(t, "loaded", os.Getenv("FREESHARE_CLI_TEST"))

	assert.Error(t, loadEnvFiles([]string{filepath.Join(t.TempDir(), "missing.env")}))
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.Config{AppEnv: "production", LogLevel: "warn"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"service":"freeshare-api"`)

	buf.Reset()
	logger = newLogger(config.Config{AppEnv: "development", LogLevel: "nonsense"}, &buf)
	logger.Info().Msg("console")
	assert.True(t, strings.Contains(buf.String(), "console"))
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestRouterServesMetricsAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	database, err := db.Connect(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.Migrate(ctx, database))

	users := repositories.NewUserRepo(database)
	items := repositories.NewItemRepo(database)
	svc := auth.NewService(users, repositories.NewSessionRepo(database), 0)
	router := newRouter(config.Config{AllowedOrigins: []string{"*"}, RateLimitPerMinute: 100}, handlers.Routes{
		Sessions:      svc,
		DB:            database,
		Auth:          handlers.NewAuthHandler(svc, nil, nil, ""),
		Users:         handlers.NewUserHandler(users, items),
		Items:         handlers.NewItemHandler(items, nil),
		Conversations: handlers.NewConversationHandler(repositories.NewConversationRepo(database), items, users, nil, nil),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freeshare_http_requests_total")
}
