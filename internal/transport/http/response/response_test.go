package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	appCtx "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/pkg/context"
)

func newReqWithBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type decodeDst struct {
	Email string `json:"email"`
}

func TestDecodeJSON_OK(t *testing.T) {
	var dst decodeDst
	if err := DecodeJSON(newReqWithBody(t, `{"email":"a@b.io"}`), &dst); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if dst.Email != "a@b.io" {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	cases := []string{`{"email":`, `{}{}`, ``, `{"email": 5}`}
	for _, body := range cases {
		var dst decodeDst
		err := DecodeJSON(newReqWithBody(t, body), &dst)
		if !domain.Is(err, "invalid_json") {
			t.Fatalf("body %q: expected invalid_json, got %v", body, err)
		}
	}
}

func TestDecodeJSON_OversizedBody(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	var dst decodeDst
	if err := DecodeJSON(newReqWithBody(t, body), &dst); !domain.Is(err, "invalid_json") {
		t.Fatalf("expected invalid_json, got %v", err)
	}
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) ErrorPayload {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, rr.Body.String())
	}
	return body.Error
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrMissingField("email"), http.StatusBadRequest, "missing_field"},
		{domain.ErrResetTokenInvalid(), http.StatusBadRequest, "invalid_or_expired_token"},
		{domain.ErrAccountInactive(), http.StatusForbidden, "account_inactive"},
		{domain.ErrRateLimited("x"), http.StatusTooManyRequests, "rate_limited"},
		{domain.ErrDBUnavailable(errors.New("x")), http.StatusInternalServerError, "db_unavailable"},
		{domain.ErrEmailDispatchFailed(errors.New("x")), http.StatusInternalServerError, "email_dispatch_failed"},
		{errors.New("raw"), http.StatusInternalServerError, "internal_error"},
	}

	for _, c := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodPost, "/x", nil), c.err)

		if rr.Code != c.status {
			t.Fatalf("%v: expected %d, got %d", c.err, c.status, rr.Code)
		}
		if got := decodeErr(t, rr); got.Code != c.code {
			t.Fatalf("%v: expected code %q, got %q", c.err, c.code, got.Code)
		}
	}
}

func TestWriteError_DoesNotLeakCause(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-1"))

	WriteError(rr, req, domain.ErrDBUnavailable(errors.New("password=hunter2 host=db")))

	if strings.Contains(rr.Body.String(), "hunter2") {
		t.Fatalf("cause leaked: %s", rr.Body.String())
	}
	if got := decodeErr(t, rr); got.RequestID != "rid-1" {
		t.Fatalf("expected request id, got %q", got.RequestID)
	}
}

func TestOK_BareBody(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, map[string]string{"message": "hi"})

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"message":"hi"}` {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
