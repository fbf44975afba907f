package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/shared"
)

func TestOAuthHandler(t *testing.T) {
	okExchange := func(ctx context.Context, code string) error { return nil }

	t.Run("Routes", func(t *testing.T) {
		h := NewOAuthHandler("", "state", okExchange)
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected default /callback route, got %v", routes)
		}
	})

	t.Run("Successful Exchange", func(t *testing.T) {
		var gotCode string
		h := NewOAuthHandler("/callback", "expected", func(ctx context.Context, code string) error {
			gotCode = code
			return nil
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=expected", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}
		if gotCode != "abc" {
			t.Errorf("expected code abc, got %s", gotCode)
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Errorf("expected no error, got %v", result.Error())
		}
		if result.Code != "abc" {
			t.Errorf("expected result code abc, got %s", result.Code)
		}
	})

	tc := []struct {
		name     string
		query    string
		exchange ExchangeFunc
		status   int
	}{
		{name: "error parameter", query: "error=access_denied&state=expected", exchange: okExchange, status: http.StatusBadRequest},
		{name: "state mismatch", query: "code=abc&state=other", exchange: okExchange, status: http.StatusBadRequest},
		{name: "missing code", query: "state=expected", exchange: okExchange, status: http.StatusBadRequest},
		{
			name:  "exchange failure",
			query: "code=abc&state=expected",
			exchange: func(ctx context.Context, code string) error {
				return errors.New("bad code")
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler("/callback", "expected", tt.exchange)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Authorization Failed") {
				t.Error("expected failure page")
			}

			result := <-h.Result()
			if !errors.Is(result.Error(), shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", result.Error())
			}
		})
	}

	t.Run("Only First Callback Is Processed", func(t *testing.T) {
		calls := 0
		h := NewOAuthHandler("/callback", "expected", func(ctx context.Context, code string) error {
			calls++
			return nil
		})

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=a&state=expected", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=b&state=expected", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
		if calls != 1 {
			t.Errorf("expected exactly one exchange, got %d", calls)
		}
	})

	t.Run("Rejects Non GET", func(t *testing.T) {
		h := NewOAuthHandler("/callback", "expected", okExchange)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}
