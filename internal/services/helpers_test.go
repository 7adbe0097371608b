package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/database"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/repositories"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/verification"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/mocks"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is a settable clock shared by the services and the store
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// setupTestDB opens a private in-memory SQLite database with the account schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// harness wires the real ledger, lockout, generator and referral engine to
// SQLite and the in-memory store, with mocks at the outer edges
type harness struct {
	clock       *testClock
	accounts    domain.AccountRepository
	store       *verification.MemoryStore
	lockout     *LockoutPolicyImpl
	ledger      *VerificationLedgerImpl
	identifiers domain.IdentifierGenerator
	referrals   *ReferralEngineImpl
	sessions    *mocks.MockSessionRepository
	tokens      *mocks.MockTokenService
	notifier    *mocks.MockNotifier
	federated   *mocks.MockFederatedVerifier
	onboarding  *OnboardingServiceImpl
}

type harnessOption func(h *harness)

func withIdentifiers(g domain.IdentifierGenerator) harnessOption {
	return func(h *harness) { h.identifiers = g }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	clock := newTestClock()
	h := &harness{
		clock:     clock,
		accounts:  repositories.NewAccountRepository(setupTestDB(t)),
		store:     verification.NewMemoryStoreWithClock(clock.Now),
		sessions:  mocks.NewMockSessionRepository(),
		tokens:    mocks.NewMockTokenService(),
		notifier:  mocks.NewMockNotifier(),
		federated: mocks.NewMockFederatedVerifier(),
	}
	h.identifiers = NewIdentifierGenerator(h.accounts, 0)
	for _, opt := range opts {
		opt(h)
	}

	h.lockout = NewLockoutPolicy(h.accounts, h.store, DefaultLockoutDuration, clock.Now)
	h.ledger = NewVerificationLedger(h.store, h.accounts, h.lockout, nil, nil, DefaultLedgerConfig(), clock.Now)
	h.referrals = NewReferralEngine(h.accounts, nil, nil, domain.ReferralBonus, clock.Now)
	h.onboarding = NewOnboardingService(OnboardingDeps{
		Accounts:    h.accounts,
		Sessions:    h.sessions,
		Ledger:      h.ledger,
		Lockout:     h.lockout,
		Identifiers: h.identifiers,
		Referrals:   h.referrals,
		Passwords:   mocks.NewMockPasswordService(),
		Tokens:      h.tokens,
		Notifier:    h.notifier,
		Federated:   h.federated,
		Clock:       clock.Now,
	}, DefaultOnboardingConfig())
	return h
}

// createAccount inserts an account directly, bypassing verification
func (h *harness) createAccount(t *testing.T, handle, email, code string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Handle:       handle,
		Email:        email,
		PasswordHash: "hashed_password1",
		Provider:     domain.ProviderEmail,
		ReferralCode: code,
	}
	if err := h.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func (h *harness) reload(t *testing.T, email string) *domain.Account {
	t.Helper()
	account, err := h.accounts.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("failed to reload %s: %v", email, err)
	}
	return account
}

var mailedCode = regexp.MustCompile(`<strong>([0-9]+)</strong>`)

// lastCode extracts the code from the most recent message sent to email
func (h *harness) lastCode(t *testing.T, email string) string {
	t.Helper()
	sent := h.notifier.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != email {
			continue
		}
		if m := mailedCode.FindStringSubmatch(sent[i].Body); m != nil {
			return m[1]
		}
	}
	t.Fatalf("no code was sent to %s", email)
	return ""
}

// wrongCode returns a code of the same length that differs from code
func wrongCode(code string) string {
	b := []byte(code)
	b[0] = '0' + (b[0]-'0'+1)%10
	return string(b)
}
