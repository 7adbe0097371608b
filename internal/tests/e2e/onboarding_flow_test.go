package e2e

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrongCode(t *testing.T, code string) string {
	t.Helper()
	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	return fmt.Sprintf("%0*d", len(code), (n+1)%10000)
}

// TestOnboardingFlow walks a referrer and a referred user through
// registration, login, profile and logout
func TestOnboardingFlow(t *testing.T) {
	ts := NewTestServer(t)

	referrer := ts.Register(t, "referrer@example.com", "password1", "")
	require.Equal(t, http.StatusCreated, referrer.Status, referrer.Body)
	referrerUser := referrer.Data()["user"].(map[string]any)
	assert.Regexp(t, `^[a-z]{3}\d{4}[a-z]$`, referrerUser["user_id"])
	assert.Regexp(t, `^[1-9]\d{7}$`, referrerUser["referral_code"])
	assert.EqualValues(t, 0, referrerUser["coins"])
	assert.Equal(t, "Bearer", referrer.Data()["token_type"])

	referralCode := referrerUser["referral_code"].(string)
	referred := ts.Register(t, "Friend@Example.com", "password2", " "+referralCode+" ")
	require.Equal(t, http.StatusCreated, referred.Status, referred.Body)
	referredUser := referred.Data()["user"].(map[string]any)
	assert.Equal(t, "friend@example.com", referredUser["email"])
	assert.Equal(t, referrerUser["user_id"], referredUser["referred_by"])

	login := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "referrer@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, login.Status, login.Body)
	token := login.Data()["token"].(string)

	me := ts.Do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Status, me.Body)
	assert.EqualValues(t, 137, me.Data()["coins"])
	referrals := me.Data()["referrals"].([]any)
	require.Len(t, referrals, 1)
	assert.Equal(t, referredUser["user_id"], referrals[0].(map[string]any)["handle"])

	logout := ts.Do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, logout.Status)

	again := ts.Do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, again.Status)
}

func TestRegister_Rejections(t *testing.T) {
	ts := NewTestServer(t)

	existing := ts.Register(t, "taken@example.com", "password1", "")
	require.Equal(t, http.StatusCreated, existing.Status)

	tests := []struct {
		name     string
		email    string
		referral string
		status   int
	}{
		{"unknown referral code", "a@example.com", "99999999", http.StatusNotFound},
		{"malformed referral code", "b@example.com", "0123", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.Register(t, tt.email, "password1", tt.referral)
			assert.Equal(t, tt.status, resp.Status, resp.Body)
		})
	}

	t.Run("already registered", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": "taken@example.com"})
		assert.Equal(t, http.StatusConflict, resp.Status)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "c@example.com"})
		assert.Equal(t, http.StatusBadRequest, resp.Status)
	})
}

func TestSendOTP_RateLimited(t *testing.T) {
	ts := NewTestServer(t)
	body := map[string]string{"email": "busy@example.com"}

	for i := 0; i < 3; i++ {
		resp := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", body)
		require.Equal(t, http.StatusOK, resp.Status, "request %d", i+1)
	}

	resp := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.NotEmpty(t, resp.Body["retry_at"])
	assert.Len(t, ts.Notifier.Sent(), 3)
}

func TestRegister_WrongCodesLockAddress(t *testing.T) {
	ts := NewTestServer(t)
	email := "guess@example.com"

	resp := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, resp.Status)
	code := ts.LastCode(t, email)

	attempt := func(otp string) Response {
		return ts.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    email,
			"password": "password1",
			"otp":      otp,
		})
	}

	first := attempt(wrongCode(t, code))
	assert.Equal(t, http.StatusBadRequest, first.Status)
	assert.EqualValues(t, 2, first.Body["attempts_remaining"])

	second := attempt(wrongCode(t, code))
	assert.Equal(t, http.StatusBadRequest, second.Status)
	assert.EqualValues(t, 1, second.Body["attempts_remaining"])

	third := attempt(wrongCode(t, code))
	assert.Equal(t, http.StatusLocked, third.Status)
	assert.NotEmpty(t, third.Body["locked_until"])

	// The lock outlives the code and blocks new requests
	assert.Equal(t, http.StatusLocked, attempt(code).Status)
	resend := ts.Do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email})
	assert.Equal(t, http.StatusLocked, resend.Status)
}

func TestPasswordReset(t *testing.T) {
	ts := NewTestServer(t)
	email := "reset@example.com"

	require.Equal(t, http.StatusCreated, ts.Register(t, email, "oldpassword", "").Status)

	send := ts.Do(t, http.MethodPost, "/api/auth/password/send-otp", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, send.Status, send.Body)

	reset := ts.Do(t, http.MethodPost, "/api/auth/password/reset", "", map[string]string{
		"email":       email,
		"otp":         ts.LastCode(t, email),
		"newPassword": "newpassword",
	})
	require.Equal(t, http.StatusOK, reset.Status, reset.Body)

	old := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "oldpassword"})
	assert.Equal(t, http.StatusUnauthorized, old.Status)

	fresh := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "newpassword"})
	assert.Equal(t, http.StatusOK, fresh.Status)

	unknown := ts.Do(t, http.MethodPost, "/api/auth/password/send-otp", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, unknown.Status)
}

func TestGoogleSignIn(t *testing.T) {
	ts := NewTestServer(t)

	referrer := ts.Register(t, "host@example.com", "password1", "")
	require.Equal(t, http.StatusCreated, referrer.Status)
	host := referrer.Data()["user"].(map[string]any)
	referralCode := host["referral_code"].(string)

	first := ts.Do(t, http.MethodPost, "/api/auth/google", "", map[string]string{
		"credential":    "guest@example.com",
		"referralInput": referralCode,
	})
	require.Equal(t, http.StatusOK, first.Status, first.Body)
	user := first.Data()["user"].(map[string]any)
	assert.Equal(t, "google", user["provider"])
	assert.Equal(t, host["user_id"], user["referred_by"])

	second := ts.Do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"credential": "guest@example.com"})
	require.Equal(t, http.StatusOK, second.Status)
	assert.Equal(t, user["user_id"], second.Data()["user"].(map[string]any)["user_id"])

	password := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "guest@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusConflict, password.Status)

	login := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "host@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, login.Status)
	me := ts.Do(t, http.MethodGet, "/api/auth/me", login.Data()["token"].(string), nil)
	assert.EqualValues(t, 137, me.Data()["coins"])
}

func TestMetricsExposed(t *testing.T) {
	ts := NewTestServer(t)
	require.Equal(t, http.StatusCreated, ts.Register(t, "count@example.com", "password1", "").Status)

	resp, err := ts.Client.Get(ts.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `veloop_registrations_total{provider="email"} 1`)
	assert.Contains(t, string(raw), `veloop_otp_requests_total{outcome="issued",purpose="register"} 1`)
}
