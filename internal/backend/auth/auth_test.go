package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/pokescan/internal/common"
)

func testJWT() JWT {
	return JWT{
		Secret:     []byte("test-secret"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"minimum length", "12345678", true},
		{"typical password", "correct-horse-battery", true},
		{"too short", "1234567", false},
		{"empty", "", false},
		{"at bcrypt limit", strings.Repeat("a", 72), true},
		{"over bcrypt limit", strings.Repeat("a", 73), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid && err != nil {
				t.Errorf("expected password to be valid, got %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !common.IsKind(err, common.KindInvalidInput) {
					t.Errorf("expected InvalidInput, got %v", err)
				}
			}
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22-but-longer")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter22-but-longer" {
		t.Fatal("hash must not equal the plain password")
	}

	if !VerifyPassword("hunter22-but-longer", hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong-password-here", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestJWT_SignPairAndVerify(t *testing.T) {
	j := testJWT()

	pair, err := j.SignPair(42, "ash")
	if err != nil {
		t.Fatalf("SignPair failed: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Errorf("expected bearer token type, got %q", pair.TokenType)
	}

	claims, err := j.Verify(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "ash" {
		t.Errorf("expected username ash, got %q", claims.Username)
	}
}

func TestJWT_RejectsRefreshTokenAsAccess(t *testing.T) {
	j := testJWT()
	pair, err := j.SignPair(1, "misty")
	if err != nil {
		t.Fatalf("SignPair failed: %v", err)
	}

	if _, err := j.Verify(pair.RefreshToken, TokenTypeAccess); err == nil {
		t.Error("expected refresh token to be rejected as access token")
	}
	if _, err := j.Verify(pair.AccessToken, TokenTypeRefresh); err == nil {
		t.Error("expected access token to be rejected as refresh token")
	}
}

func TestJWT_RejectsWrongSecret(t *testing.T) {
	pair, err := testJWT().SignPair(1, "brock")
	if err != nil {
		t.Fatalf("SignPair failed: %v", err)
	}

	other := JWT{Secret: []byte("different-secret"), AccessTTL: time.Minute, RefreshTTL: time.Hour}
	if _, err := other.Verify(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestJWT_RejectsExpiredToken(t *testing.T) {
	j := JWT{Secret: []byte("s"), AccessTTL: -time.Minute, RefreshTTL: time.Hour}
	pair, err := j.SignPair(1, "gary")
	if err != nil {
		t.Fatalf("SignPair failed: %v", err)
	}

	if _, err := j.Verify(pair.AccessToken, TokenTypeAccess); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	j := testJWT()
	pair, err := j.SignPair(7, "ash")
	if err != nil {
		t.Fatalf("SignPair failed: %v", err)
	}

	e := echo.New()
	handler := Middleware(j)(func(ctx echo.Context) error {
		claims, ok := CurrentUser(ctx)
		if !ok {
			t.Fatal("expected claims on context")
		}
		if claims.UserID != 7 {
			t.Errorf("expected user id 7, got %d", claims.UserID)
		}
		return ctx.NoContent(http.StatusOK)
	})

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
	}{
		{"valid token", "Bearer " + pair.AccessToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authorization != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.authorization)
			}
			rec := httptest.NewRecorder()
			ctx := e.NewContext(req, rec)

			err := handler(ctx)

			status := rec.Code
			var httpErr *echo.HTTPError
			if err != nil {
				var ok bool
				httpErr, ok = err.(*echo.HTTPError)
				if !ok {
					t.Fatalf("expected *echo.HTTPError, got %T", err)
				}
				status = httpErr.Code
			}
			if status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, status)
			}
		})
	}
}
