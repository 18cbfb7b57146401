package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_SuccessSetsCookieAndSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "correct-password"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "u-alice", user["id"])
	assert.Equal(t, "PREMIUM", user["membershipTier"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	sess := env.do(t, http.MethodGet, "/api/v1/auth/session", nil, token)
	require.Equal(t, http.StatusOK, sess.Code)
	sessUser := decodeBody(t, sess)["user"].(map[string]interface{})
	assert.Equal(t, "u-alice", sessUser["id"])
	assert.Equal(t, true, sessUser["verified"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.AddCookie(cookies[0])
	viaCookie := httptest.NewRecorder()
	env.router.ServeHTTP(viaCookie, req)
	assert.Equal(t, http.StatusOK, viaCookie.Code)
}

func TestLogin_FailureMessagesAreIdentical(t *testing.T) {
	env := newTestEnv(t)

	unknown := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nobody@example.com", "password": "correct-password"}, "")
	wrong := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "wrong-password"}, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, wrong.Body.String())
}

func TestLogin_Suspended(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "banned@example.com", "password": "correct-password"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Account suspended"}`, rec.Body.String())
}

func TestLogin_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "alice@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email and password are required"}`, rec.Body.String())
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, withLimiter(denyLimiter{}))

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "correct-password"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	req := map[string]string{
		"email":       "new@example.com",
		"password":    "longenough",
		"name":        "Newcomer",
		"dateOfBirth": "1990-01-01",
		"accountType": "single",
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", req, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "FREE", body["user"].(map[string]interface{})["membershipTier"])

	dup := env.do(t, http.MethodPost, "/api/v1/auth/signup", req, "")
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.JSONEq(t, `{"error":"User already exists"}`, dup.Body.String())

	req["email"] = "other@example.com"
	req["password"] = "short"
	bad := env.do(t, http.MethodPost, "/api/v1/auth/signup", req, "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.JSONEq(t, `{"error":"Password must be at least 8 characters"}`, bad.Body.String())
}

func TestSession_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "garbage.token.value"} {
		rec := env.do(t, http.MethodGet, "/api/v1/auth/session", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestLogin_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	env := newTestEnv(t, withLimiter(newCountingLimiter()))
	creds := map[string]string{"email": "alice@example.com", "password": "wrong-password"}

	first := env.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", creds, "", map[string]string{"X-Forwarded-For": "203.0.113.1"})
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	for _, ip := range []string{"203.0.113.2", "203.0.113.3"} {
		rec := env.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", creds, "", map[string]string{
			"X-Forwarded-For": ip,
			"X-Real-IP":       ip,
		})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, ip)
	}
}

func TestLogin_ForwardedForHonouredFromTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1
	env := newTestEnv(t, withLimiter(newCountingLimiter()), withTrustedProxies("192.0.2.0/24"))
	creds := map[string]string{"email": "alice@example.com", "password": "wrong-password"}

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		rec := env.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", creds, "", map[string]string{"X-Real-IP": ip})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, ip)
	}

	again := env.doWithHeaders(t, http.MethodPost, "/api/v1/auth/login", creds, "", map[string]string{"X-Real-IP": "203.0.113.1"})
	assert.Equal(t, http.StatusTooManyRequests, again.Code)
}
