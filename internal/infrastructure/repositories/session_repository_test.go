package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() {
		mr.Close()
	})

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestSessionRepositoryImpl_Create(t *testing.T) {
	tests := []struct {
		name         string
		session      *domain.Session
		ttl          time.Duration
		validateData func(t *testing.T, client *redis.Client, session *domain.Session)
	}{
		{
			name: "successful session creation",
			session: &domain.Session{
				ID:        "session_123",
				Handle:    "abc1234d",
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			ttl: 7 * 24 * time.Hour,
			validateData: func(t *testing.T, client *redis.Client, session *domain.Session) {
				key := "session:" + session.ID
				if client.Exists(context.Background(), key).Val() != 1 {
					t.Error("expected session to exist in Redis")
				}

				// TTL follows the session expiry when it is shorter
				ttl := client.TTL(context.Background(), key).Val()
				if ttl <= 0 || ttl > time.Hour {
					t.Errorf("expected TTL within one hour, got %v", ttl)
				}

				var stored domain.Session
				data := client.Get(context.Background(), key).Val()
				if err := json.Unmarshal([]byte(data), &stored); err != nil {
					t.Fatalf("failed to unmarshal stored session: %v", err)
				}
				if stored.Handle != "abc1234d" {
					t.Errorf("expected handle abc1234d, got %s", stored.Handle)
				}
			},
		},
		{
			name: "expiry beyond repository TTL is capped",
			session: &domain.Session{
				ID:        "session_456",
				Handle:    "xyz9876q",
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
			},
			ttl: time.Hour,
			validateData: func(t *testing.T, client *redis.Client, session *domain.Session) {
				ttl := client.TTL(context.Background(), "session:"+session.ID).Val()
				if ttl <= 0 || ttl > time.Hour {
					t.Errorf("expected TTL capped at one hour, got %v", ttl)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupTestRedis(t)
			repo := NewSessionRepository(client, tt.ttl)

			if err := repo.Create(context.Background(), tt.session); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tt.validateData(t, client, tt.session)
		})
	}
}

func TestSessionRepositoryImpl_FindByID(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, repo domain.SessionRepository, client *redis.Client)
		sessionID     string
		expectedError error
	}{
		{
			name: "existing session",
			setup: func(t *testing.T, repo domain.SessionRepository, client *redis.Client) {
				err := repo.Create(context.Background(), &domain.Session{
					ID:        "sess_ok",
					Handle:    "abc1234d",
					CreatedAt: time.Now(),
					ExpiresAt: time.Now().Add(time.Hour),
				})
				if err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			},
			sessionID: "sess_ok",
		},
		{
			name:          "missing session",
			setup:         func(t *testing.T, repo domain.SessionRepository, client *redis.Client) {},
			sessionID:     "sess_missing",
			expectedError: domain.ErrSessionNotFound,
		},
		{
			name: "stored session past expiry",
			setup: func(t *testing.T, repo domain.SessionRepository, client *redis.Client) {
				data, _ := json.Marshal(&domain.Session{
					ID:        "sess_old",
					Handle:    "abc1234d",
					ExpiresAt: time.Now().Add(-time.Minute),
				})
				client.Set(context.Background(), "session:sess_old", data, time.Hour)
			},
			sessionID:     "sess_old",
			expectedError: domain.ErrSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupTestRedis(t)
			repo := NewSessionRepository(client, time.Hour)
			tt.setup(t, repo, client)

			session, err := repo.FindByID(context.Background(), tt.sessionID)
			if tt.expectedError != nil {
				if err != tt.expectedError {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.Handle != "abc1234d" {
				t.Errorf("expected handle abc1234d, got %s", session.Handle)
			}
		})
	}
}

func TestSessionRepositoryImpl_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)
	ctx := context.Background()

	session := &domain.Session{ID: "sess_del", Handle: "abc1234d", ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Delete(ctx, "sess_del"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, "sess_del"); err != domain.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	// Deleting twice is not an error
	if err := repo.Delete(ctx, "sess_del"); err != nil {
		t.Errorf("second delete should succeed, got %v", err)
	}
}
