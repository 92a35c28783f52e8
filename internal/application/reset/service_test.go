package reset

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/infrastructure/memory"
)

func TestRequest_MissingEmail(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)

	_, err := h.svc.Request(context.Background(), "   ")
	requireErrCode(t, err, "missing_field")
}

func TestRequest_UnknownEmail_GenericNoMailNoDebug(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)

	res, err := h.svc.Request(context.Background(), "ghost@nowhere.com")
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if res.Message != GenericRequestMessage {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Debug != nil {
		t.Fatalf("debug block must not be present for unknown email")
	}
	if h.mailer.count() != 0 {
		t.Fatalf("no email expected, got %d", h.mailer.count())
	}
	if got := h.audit.actions(); len(got) != 1 || got[0] != "password_reset_unknown_email" {
		t.Fatalf("unexpected audit: %v", got)
	}
}

func TestRequest_KnownAndUnknown_SamePublicShape(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	known, err := h.svc.Request(context.Background(), "owner@garage.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unknown, err := h.svc.Request(context.Background(), "ghost@garage.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(known, unknown) {
		t.Fatalf("responses differ: %+v vs %+v", known, unknown)
	}
}

func TestRequest_InactiveAccount_Forbidden(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.addAccount(t, "a1", "parked@garage.io", domain.StatusInactive)

	_, err := h.svc.Request(context.Background(), "parked@garage.io")
	requireErrCode(t, err, "account_inactive")
	if domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden kind, got %s", domain.KindOf(err))
	}
	if h.mailer.count() != 0 {
		t.Fatalf("no email expected")
	}

	acct, _ := h.repo.GetByID(context.Background(), "a1")
	if acct.ResetTokenDigest != nil {
		t.Fatalf("no token must be stored for an inactive account")
	}
}

func TestRequest_StoresDigestNotSecret_AndMailsLink(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	res, err := h.svc.Request(context.Background(), "  OWNER@garage.io ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Debug == nil {
		t.Fatalf("expected debug block")
	}
	if res.Debug.ResetURL != testBaseURL+res.Debug.Token {
		t.Fatalf("unexpected reset url: %q", res.Debug.ResetURL)
	}
	if !res.Debug.ExpiresAt.Equal(h.clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", res.Debug.ExpiresAt)
	}

	msg := h.mailer.last()
	if msg.To != "owner@garage.io" {
		t.Fatalf("unexpected recipient: %q", msg.To)
	}
	if !strings.Contains(msg.HTML, res.Debug.ResetURL) || !strings.Contains(msg.Text, "Sam Mechanic") {
		t.Fatalf("email does not carry link and name: %+v", msg)
	}

	acct, _ := h.repo.GetByID(context.Background(), "a1")
	if acct.ResetTokenDigest == nil || *acct.ResetTokenDigest != Digest(res.Debug.Token) {
		t.Fatalf("stored digest mismatch")
	}
	if *acct.ResetTokenDigest == res.Debug.Token {
		t.Fatalf("plaintext secret persisted")
	}
}

func TestRequest_DebugDisabled_NoDebugBlock(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	res, err := h.svc.Request(context.Background(), "owner@garage.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Debug != nil {
		t.Fatalf("debug block leaked with exposure disabled")
	}
	if h.mailer.count() != 1 {
		t.Fatalf("expected one email, got %d", h.mailer.count())
	}
}

func TestRequest_MailFailure_DispatchError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)
	h.mailer.err = errors.New("smtp down")

	_, err := h.svc.Request(context.Background(), "owner@garage.io")
	requireErrCode(t, err, "email_dispatch_failed")
	if domain.KindOf(err) != domain.KindInfrastructure {
		t.Fatalf("expected infrastructure kind, got %s", domain.KindOf(err))
	}
}

func TestRequest_StoreFailure_DependencyError(t *testing.T) {
	t.Parallel()
	svc := NewService(brokenStore{}, &fakeHasher{}, &fakeMailer{}, testRender, Config{PasswordResetBaseURL: testBaseURL})

	_, err := svc.Request(context.Background(), "owner@garage.io")
	requireErrCode(t, err, "db_unavailable")
	if !errors.Is(err, errDriver) {
		t.Fatalf("cause not preserved: %v", err)
	}

	_, err = svc.ValidateToken(context.Background(), "abc")
	requireErrCode(t, err, "db_unavailable")
}

func TestFullLifecycle_RequestValidateResetReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("request: %v", err)
	}
	secret := h.secretFromMail(t)

	v, err := h.svc.ValidateToken(ctx, secret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Message != ValidTokenMessage || v.Email != "owner@garage.io" {
		t.Fatalf("unexpected validate result: %+v", v)
	}

	// validation does not consume
	if _, err := h.svc.ValidateToken(ctx, secret); err != nil {
		t.Fatalf("second validate: %v", err)
	}

	if err := h.svc.Reset(ctx, secret, "brand-new-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	acct, _ := h.repo.GetByID(ctx, "a1")
	if acct.PasswordHash != "hash:brand-new-pass" {
		t.Fatalf("credential not updated: %q", acct.PasswordHash)
	}
	if acct.ResetTokenDigest != nil || acct.ResetTokenExpiresAt != nil {
		t.Fatalf("reset fields not cleared")
	}

	requireErrCode(t, h.svc.Reset(ctx, secret, "another-pass"), "invalid_or_expired_token")
	_, err = h.svc.ValidateToken(ctx, secret)
	requireErrCode(t, err, "invalid_or_expired_token")

	got := h.audit.actions()
	want := []string{"password_reset_requested", "password_reset_completed", "password_reset_rejected"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestValidateToken_BogusAndMissing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)

	_, err := h.svc.ValidateToken(context.Background(), "")
	requireErrCode(t, err, "missing_field")

	_, err = h.svc.ValidateToken(context.Background(), "not-a-real-token")
	requireErrCode(t, err, "invalid_or_expired_token")
}

func TestRequestTwice_FirstTokenInvalidated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := h.secretFromMail(t)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := h.secretFromMail(t)

	if first == second {
		t.Fatalf("expected a fresh secret")
	}
	_, err := h.svc.ValidateToken(ctx, first)
	requireErrCode(t, err, "invalid_or_expired_token")

	if _, err := h.svc.ValidateToken(ctx, second); err != nil {
		t.Fatalf("latest token should validate: %v", err)
	}
}

func TestReset_ExpiredToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("request: %v", err)
	}
	secret := h.secretFromMail(t)

	h.clock.Advance(30 * time.Minute)

	_, err := h.svc.ValidateToken(ctx, secret)
	requireErrCode(t, err, "invalid_or_expired_token")
	requireErrCode(t, h.svc.Reset(ctx, secret, "brand-new-pass"), "invalid_or_expired_token")

	acct, _ := h.repo.GetByID(ctx, "a1")
	if acct.PasswordHash != "hash:original" {
		t.Fatalf("credential changed by expired token")
	}
}

func TestReset_InputValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)

	requireErrCode(t, h.svc.Reset(context.Background(), "", "brand-new-pass"), "missing_field")
	requireErrCode(t, h.svc.Reset(context.Background(), "tok", ""), "missing_field")
	requireErrCode(t, h.svc.Reset(context.Background(), "tok", "short"), "weak_password")
}

func TestReset_HashFailure_TokenStillUsable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("request: %v", err)
	}
	secret := h.secretFromMail(t)

	h.hasher.err = errors.New("boom")
	requireErrCode(t, h.svc.Reset(ctx, secret, "brand-new-pass"), "hash_failed")

	if _, err := h.svc.ValidateToken(ctx, secret); err != nil {
		t.Fatalf("token should survive a failed hash: %v", err)
	}
}

func TestReset_ConcurrentConsume_SingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("request: %v", err)
	}
	secret := h.secretFromMail(t)

	var ok, invalid int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.svc.Reset(ctx, secret, "brand-new-pass")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case domain.Is(err, "invalid_or_expired_token"):
				atomic.AddInt32(&invalid, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || invalid != 11 {
		t.Fatalf("expected 1 success and 11 rejections, got %d/%d", ok, invalid)
	}
}

func TestReset_AccountDeactivatedAfterRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if _, err := h.svc.Request(ctx, "owner@garage.io"); err != nil {
		t.Fatalf("request: %v", err)
	}
	secret := h.secretFromMail(t)

	// a second store with the same pending token but a suspended account
	acct, _ := h.repo.GetByID(ctx, "a1")
	other := newHarness(t, false)
	acct.Status = domain.StatusSuspended
	if _, err := other.repo.Create(ctx, acct); err != nil {
		t.Fatalf("seed: %v", err)
	}
	other.clock.now = h.clock.Now()

	_, err := other.svc.ValidateToken(ctx, secret)
	requireErrCode(t, err, "invalid_or_expired_token")
}

func TestSweepExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)

	if err := h.repo.UpdateResetToken(ctx, "a1", Digest("x"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	if n := SweepExpired(ctx, h.repo, zerolog.Nop()); n != 1 {
		t.Fatalf("expected 1 cleared, got %d", n)
	}
	if n := SweepExpired(ctx, h.repo, zerolog.Nop()); n != 0 {
		t.Fatalf("expected idempotent sweep, got %d", n)
	}
}

func TestStartExpiredTokenSweeper_StopsWithContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.addAccount(t, "a1", "owner@garage.io", domain.StatusActive)
	if err := h.repo.UpdateResetToken(context.Background(), "a1", Digest("x"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	StartExpiredTokenSweeper(ctx, h.repo, time.Hour, zerolog.Nop())

	deadline := time.Now().Add(2 * time.Second)
	for {
		a, _ := h.repo.GetByID(context.Background(), "a1")
		if a.ResetTokenDigest == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("initial sweep did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
}

type blockingMailer struct{}

func (blockingMailer) Send(ctx context.Context, msg Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRequest_MailTimeoutIsDependencyError(t *testing.T) {
	repo := memory.NewAccountRepo()
	if _, err := repo.Create(context.Background(), domain.Account{
		ID: "acct-timeout", Email: "slow@garage.example", Status: domain.StatusActive, PasswordHash: "hash:x",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(repo, &fakeHasher{}, blockingMailer{}, testRender, Config{
		PasswordResetBaseURL: testBaseURL,
		MailTimeout:          20 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.Request(context.Background(), "slow@garage.example")
	requireErrCode(t, err, "email_dispatch_failed")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("mail timeout not applied")
	}
}
