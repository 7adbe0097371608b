package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	httpx "github.com/Ayan-Alam-07/VELoop-Backend/internal/http"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/handlers"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/middleware"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/auth"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/database"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/metrics"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/repositories"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/verification"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/mocks"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/services"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sessionTTL = 7 * 24 * time.Hour

var mailedCode = regexp.MustCompile(`<strong>(\d+)</strong>`)

// TestServer runs the full router over a private SQLite database and an
// in-process Redis. Mail is captured instead of sent.
type TestServer struct {
	Server   *httptest.Server
	Client   *http.Client
	DB       *gorm.DB
	Redis    *miniredis.Miniredis
	Notifier *mocks.MockNotifier
	Metrics  *metrics.Recorder
}

// NewTestServer starts a server that is closed when the test ends
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	recorder := metrics.New()
	notifier := mocks.NewMockNotifier()
	store := verification.NewRedisStore(client, "veloop:")
	accounts := repositories.NewAccountRepository(db)
	sessions := repositories.NewSessionRepository(client, sessionTTL)
	tokens := auth.NewJWTService("e2e-secret", "veloop-e2e", sessionTTL)
	audit := services.NewAuditLogger(log)
	lockout := services.NewLockoutPolicy(accounts, store, 24*time.Hour, nil)
	ledger := services.NewVerificationLedger(store, accounts, lockout, audit, recorder, services.DefaultLedgerConfig(), nil)

	svc := services.NewOnboardingService(services.OnboardingDeps{
		Accounts:    accounts,
		Sessions:    sessions,
		Ledger:      ledger,
		Lockout:     lockout,
		Identifiers: services.NewIdentifierGenerator(accounts, services.DefaultMaxAllocationAttempts),
		Referrals:   services.NewReferralEngine(accounts, audit, recorder, 137, nil),
		Passwords:   auth.NewPasswordServiceWithCost(bcrypt.MinCost),
		Tokens:      tokens,
		Notifier:    notifier,
		Federated:   mocks.NewMockFederatedVerifier(),
		Audit:       audit,
		Metrics:     recorder,
		Logger:      log,
	}, services.DefaultOnboardingConfig())

	router := httpx.BuildRouter(
		handlers.NewAuthHandlers(svc),
		middleware.NewAuthMW(tokens, sessions),
		httpx.RouterConfig{
			Logger:   log,
			Observer: recorder,
			Metrics:  recorder.Handler(),
		},
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:   server,
		Client:   &http.Client{Timeout: 10 * time.Second},
		DB:       db,
		Redis:    mr,
		Notifier: notifier,
		Metrics:  recorder,
	}
}

// Response is a decoded JSON reply
type Response struct {
	Status int
	Body   map[string]any
}

// Data returns the "data" envelope of a successful reply
func (r Response) Data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

// Do sends a JSON request, with a bearer token when token is not empty
func (ts *TestServer) Do(t *testing.T, method, path, token string, body any) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := Response{Status: resp.StatusCode, Body: map[string]any{}}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out.Body); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return out
}

// LastCode returns the code in the latest mail sent to email
func (ts *TestServer) LastCode(t *testing.T, email string) string {
	t.Helper()
	email = domain.NormalizeEmail(email)
	sent := ts.Notifier.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != email {
			continue
		}
		if m := mailedCode.FindStringSubmatch(sent[i].Body); m != nil {
			return m[1]
		}
	}
	t.Fatalf("no code was mailed to %s", email)
	return ""
}

// Register requests a code for email and registers with it
func (ts *TestServer) Register(t *testing.T, email, password, referral string) Response {
	t.Helper()
	if resp := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email}); resp.Status != http.StatusOK {
		t.Fatalf("send-otp for %s returned %d: %v", email, resp.Status, resp.Body)
	}
	return ts.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":         email,
		"password":      password,
		"otp":           ts.LastCode(t, email),
		"referralInput": referral,
	})
}
