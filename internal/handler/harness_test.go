package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lifestyle-api/internal/client"
	"lifestyle-api/internal/hashing"
	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
	"lifestyle-api/internal/repository/fixture"
	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
)

const testCookie = "session_token"

type userStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func (s *userStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return nil, repository.ErrDuplicate
	}
	s.seq++
	u.ID = fmt.Sprintf("u-new-%d", s.seq)
	cp := *u
	s.users[u.Email] = &cp
	return u, nil
}

func (s *userStore) UpdateLastActive(context.Context, string, time.Time) error { return nil }

type waitlistStore struct {
	mu       sync.Mutex
	emails   map[string]bool
	countErr error
}

func (w *waitlistStore) InsertIfAbsent(_ context.Context, email string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.emails[email] {
		return false, nil
	}
	w.emails[email] = true
	return true, nil
}

func (w *waitlistStore) Count(context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.countErr != nil {
		return 0, w.countErr
	}
	return int64(len(w.emails)), nil
}

type receiptStub struct {
	resp *client.AppStoreResponse
	err  error
}

func (r *receiptStub) VerifyReceipt(context.Context, string) (*client.AppStoreResponse, error) {
	return r.resp, r.err
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return false, 1500 * time.Millisecond, nil
}

type testEnv struct {
	router        chi.Router
	issuer        *session.Issuer
	waitlist      *waitlistStore
	receipts      *receiptStub
	conversations *fixture.ConversationStore
	readyErr      error
}

type envOption func(*service.Dependencies, *RouterOptions)

func withLimiter(l service.RateLimiter) envOption {
	return func(d *service.Dependencies, _ *RouterOptions) {
		d.Limiter = l
		d.LoginRule = service.LimitRule{Limit: 1, Window: time.Minute}
		d.WaitlistRule = service.LimitRule{Limit: 1, Window: time.Minute}
	}
}

// countingLimiter is a fixed window that never expires
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{counts: map[string]int{}}
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, time.Second, nil
}

func withTrustedProxies(proxies ...string) envOption {
	return func(_ *service.Dependencies, o *RouterOptions) {
		for _, p := range proxies {
			o.TrustedProxies = append(o.TrustedProxies, netip.MustParsePrefix(p))
		}
	}
}

func withTLS() envOption {
	return func(_ *service.Dependencies, o *RouterOptions) { o.RequireTLS = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	hasher := hashing.NewHasher(hashing.WithBcryptCost(bcrypt.MinCost))
	hash, err := hasher.Hash("correct-password")
	require.NoError(t, err)

	users := &userStore{users: map[string]*models.User{
		"alice@example.com":  {ID: "u-alice", Email: "alice@example.com", PasswordHash: &hash, Name: "Alice", Verified: true, MembershipTier: models.TierPremium},
		"banned@example.com": {ID: "u-banned", Email: "banned@example.com", PasswordHash: &hash, Name: "Banned", IsBanned: true, MembershipTier: models.TierFree},
	}}

	env := &testEnv{
		issuer:        session.NewIssuer([]byte("handler-test-secret"), "lifestyle-api", time.Hour),
		waitlist:      &waitlistStore{emails: map[string]bool{}},
		receipts:      &receiptStub{resp: &client.AppStoreResponse{Status: 0}},
		conversations: fixture.NewConversationStore(),
	}

	deps := service.Dependencies{
		Users:         users,
		Waitlist:      env.waitlist,
		Hasher:        hasher,
		AppStore:      env.receipts,
		Profiles:      fixture.NewProfileSource(append(fixture.DemoProfiles(), models.Profile{UserID: "u-alice", Name: "Alice"})),
		Conversations: env.conversations,
	}
	routerOpts := RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		Sessions:       env.issuer,
		CookieName:     testCookie,
	}
	for _, opt := range opts {
		opt(&deps, &routerOpts)
	}

	logger := zap.NewNop()
	services := service.NewServiceFactory(deps, logger)

	env.router = NewRouter(Handlers{
		Auth:         NewAuthHandler(services.AuthService(), env.issuer, CookieConfig{Name: testCookie}, logger),
		Waitlist:     NewWaitlistHandler(services.WaitlistService(), logger),
		Subscription: NewSubscriptionHandler(services.SubscriptionService(), logger),
		Discover:     NewDiscoverHandler(services.DiscoverService(), logger),
		Messaging:    NewMessagingHandler(services.MessagingService(), logger),
		Health: NewHealthHandler(map[string]HealthCheck{
			"postgres": func(context.Context) error { return env.readyErr },
			"redis":    func(context.Context) error { return nil },
		}, time.Second, logger),
	}, routerOpts, logger)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	return e.doWithHeaders(t, method, path, body, token, nil)
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path string, body interface{}, token string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) tokenFor(t *testing.T, id, name string, tier models.MembershipTier) string {
	t.Helper()
	tok, err := e.issuer.Encode(&models.Identity{ID: id, Email: id + "@example.com", Name: name, MembershipTier: tier})
	require.NoError(t, err)
	return tok.Value
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var errBackend = errors.New("backend unavailable")
