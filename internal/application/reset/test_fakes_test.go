package reset

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/memory"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type auditSink struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditSink) record(_ context.Context, action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *auditSink) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

/*
Fakes for ports
*/

type fakeHasher struct {
	err error
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hash:" + pw, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// brokenStore fails every call with a driver-style error.
type brokenStore struct{}

var errDriver = errors.New("connection refused")

func (brokenStore) FindByEmail(context.Context, string) (domain.Account, error) {
	return domain.Account{}, errDriver
}
func (brokenStore) FindByResetDigestValid(context.Context, string, time.Time) (domain.Account, error) {
	return domain.Account{}, errDriver
}
func (brokenStore) UpdateResetToken(context.Context, string, string, time.Time) error {
	return errDriver
}
func (brokenStore) ConsumeResetAndSetCredential(context.Context, string, string, string, time.Time) error {
	return errDriver
}

func testRender(name, resetURL string) (string, string, string) {
	return "Reset your password", "<p>" + name + " " + resetURL + "</p>", name + " " + resetURL
}

/*
Service builder
*/

const testBaseURL = "https://garage.example/reset-password?token="

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc    *Service
	repo   *memory.AccountRepo
	mailer *fakeMailer
	hasher *fakeHasher
	audit  *auditSink
	clock  *testClock
}

func newHarness(t *testing.T, debug bool) *harness {
	t.Helper()

	h := &harness{
		repo:   memory.NewAccountRepo(),
		mailer: &fakeMailer{},
		hasher: &fakeHasher{},
		audit:  &auditSink{},
		clock:  &testClock{now: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
	}
	h.svc = NewService(h.repo, h.hasher, h.mailer, testRender, Config{
		PasswordResetBaseURL:  testBaseURL,
		PasswordResetTokenTTL: 30 * time.Minute,
		ExposeDebugToken:      debug,
	}).WithAudit(h.audit.record).WithClock(h.clock.Now)

	return h
}

func (h *harness) addAccount(t *testing.T, id, email string, status domain.AccountStatus) {
	t.Helper()
	if _, err := h.repo.Create(context.Background(), domain.Account{
		ID:           id,
		Email:        email,
		Name:         "Sam Mechanic",
		Status:       status,
		PasswordHash: "hash:original",
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

// secretFromMail pulls the secret out of the last mailed reset link.
func (h *harness) secretFromMail(t *testing.T) string {
	t.Helper()
	if h.mailer.count() == 0 {
		t.Fatalf("no email sent")
	}
	text := h.mailer.last().Text
	i := strings.Index(text, testBaseURL)
	if i < 0 {
		t.Fatalf("reset link missing from email: %q", text)
	}
	return text[i+len(testBaseURL):]
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}
