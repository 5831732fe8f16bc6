//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daybook/apiserver/config"
	"github.com/daybook/apiserver/internal/db"
	"github.com/daybook/apiserver/internal/server"
	"github.com/daybook/apiserver/types"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setServerEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestAccountAndTodoLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("user_%d", time.Now().UnixNano())
	password := "testpass123!"

	pair, err := registerAndLogin(t, baseURL, username, password)
	if err != nil {
		t.Fatalf("register and login: %v", err)
	}

	created, err := doJSON[types.Todo](t, http.MethodPost, baseURL+"/todos/", pair.AccessToken,
		map[string]any{"title": "write the weekly review"}, http.StatusCreated)
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if created.Status != types.TodoStatusPending {
		t.Fatalf("status = %q, want %q", created.Status, types.TodoStatusPending)
	}

	completed, err := doJSON[types.Todo](t, http.MethodPut, fmt.Sprintf("%s/todos/%d", baseURL, created.ID), pair.AccessToken,
		map[string]any{"title": "write the weekly review", "is_complete": true}, http.StatusOK)
	if err != nil {
		t.Fatalf("complete todo: %v", err)
	}
	if completed.Status != types.TodoStatusCompleted || completed.CompletedDate == nil {
		t.Fatalf("unexpected completion state: %+v", completed)
	}

	listed, err := doJSON[[]types.Todo](t, http.MethodGet, baseURL+"/todos/completed", pair.AccessToken, nil, http.StatusOK)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 completed todo, got %d", len(listed))
	}

	stats, err := doJSON[types.ProfileStats](t, http.MethodGet, baseURL+"/profile/stats", pair.AccessToken, nil, http.StatusOK)
	if err != nil {
		t.Fatalf("profile stats: %v", err)
	}
	if stats.Username != username || stats.CompletedTodos != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestJournalLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("journal_%d", time.Now().UnixNano())

	pair, err := registerAndLogin(t, baseURL, username, "testpass123!")
	if err != nil {
		t.Fatalf("register and login: %v", err)
	}

	entryDate := time.Now()
	created, err := doJSON[types.JournalEntry](t, http.MethodPost, baseURL+"/journal/", pair.AccessToken,
		map[string]any{"entry_date": entryDate, "content": "ran the suite"}, http.StatusCreated)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	// Same calendar date is rejected.
	if _, err := doJSON[map[string]any](t, http.MethodPost, baseURL+"/journal/", pair.AccessToken,
		map[string]any{"entry_date": entryDate.Add(time.Minute), "content": "again"}, http.StatusConflict); err != nil {
		t.Fatalf("duplicate entry: %v", err)
	}

	byDate, err := doJSON[types.JournalEntry](t, http.MethodGet,
		fmt.Sprintf("%s/journal/by-date?date=%s", baseURL, entryDate.Format("2006-01-02")),
		pair.AccessToken, nil, http.StatusOK)
	if err != nil {
		t.Fatalf("get by date: %v", err)
	}
	if byDate.ID != created.ID {
		t.Fatalf("by-date returned entry %d, want %d", byDate.ID, created.ID)
	}
}

func TestRefreshRotation(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("refresh_%d", time.Now().UnixNano())

	pair, err := registerAndLogin(t, baseURL, username, "testpass123!")
	if err != nil {
		t.Fatalf("register and login: %v", err)
	}
	me, err := doJSON[types.User](t, http.MethodGet, baseURL+"/auth/me", pair.AccessToken, nil, http.StatusOK)
	if err != nil {
		t.Fatalf("me: %v", err)
	}

	body := map[string]any{"user_id": me.ID, "refresh_token": pair.RefreshToken}
	rotated, err := doJSON[types.TokenPair](t, http.MethodPost, baseURL+"/auth/refresh", "", body, http.StatusOK)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected rotation to mint a new refresh token")
	}

	if _, err := doJSON[map[string]any](t, http.MethodPost, baseURL+"/auth/refresh", "", body, http.StatusUnauthorized); err != nil {
		t.Fatalf("reused refresh token: %v", err)
	}
}

func registerAndLogin(t *testing.T, baseURL, username, password string) (types.TokenPair, error) {
	t.Helper()

	creds := map[string]string{"username": username, "password": password}
	if _, err := doJSON[map[string]any](t, http.MethodPost, baseURL+"/auth/register", "", creds, http.StatusCreated); err != nil {
		return types.TokenPair{}, err
	}
	return doJSON[types.TokenPair](t, http.MethodPost, baseURL+"/auth/login", "", creds, http.StatusOK)
}

func doJSON[T any](t *testing.T, method, url, token string, body any, wantStatus int) (T, error) {
	t.Helper()

	var zero T
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return zero, err
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return zero, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		return zero, fmt.Errorf("%s %s status %d, want %d: %s", method, url, resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}

	var parsed T
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && err != io.EOF {
		return zero, err
	}
	return parsed, nil
}

func setServerEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("JWT_ISSUER", "daybook-e2e")
	_ = os.Setenv("JWT_AUDIENCE", "daybook-client")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "daybook")
	_ = os.Setenv("DB_PASSWORD", "daybook")
	_ = os.Setenv("DB_NAME", "daybook")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.BuildPostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.BuildPostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
