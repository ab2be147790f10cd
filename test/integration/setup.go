package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/thisorthat/api/internal/adapters/handler/http"
	repo "github.com/thisorthat/api/internal/adapters/repository/postgres"
	"github.com/thisorthat/api/internal/core/ports"
	"github.com/thisorthat/api/internal/core/services"
	"github.com/thisorthat/api/internal/realtime"
)

const testJWTSecret = "test-secret"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Hub         *realtime.Hub
	PollSvc     ports.PollService
	VoteSvc     ports.VoteService
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	entry := logrus.NewEntry(logger)

	hub := realtime.NewHub(entry)
	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)

	pollSvc := services.NewPollService(pollRepo, hub, entry)
	voteSvc := services.NewVoteService(pollRepo, voteRepo, hub, entry)

	pollHandler := handler.NewPollHandler(pollSvc, voteSvc)
	voteHandler := handler.NewVoteHandler(voteSvc)
	streamHandler := handler.NewStreamHandler(hub, entry)
	auth := handler.NewAuthMiddleware(testJWTSecret)

	server := httptest.NewServer(handler.NewHandler(pollHandler, voteHandler, streamHandler, auth))

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Hub:         hub,
		PollSvc:     pollSvc,
		VoteSvc:     voteSvc,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func createAccessToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}
