package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func TestDecodeMalformed(t *testing.T) {
	for _, token := range []string{"", "garbage", "a.b", "x.y.z"} {
		if _, err := Decode(token); err == nil {
			t.Fatalf("expected %q to fail decoding", token)
		}
	}
}

func TestDecodeClaims(t *testing.T) {
	token := mintToken(t, RoleAdmin, time.Now().Add(time.Hour))
	claims, err := Decode(token)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if claims.Role != RoleAdmin || claims.Subject != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestGuardValidMatrix(t *testing.T) {
	cases := []struct {
		name  string
		token string
		valid bool
	}{
		{"absent", "", false},
		{"unparsable", "not-a-token", false},
		{"expired", mintToken(t, RoleUser, time.Now().Add(-time.Minute)), false},
		{"current", mintToken(t, RoleUser, time.Now().Add(time.Hour)), true},
	}
	for _, tc := range cases {
		guard := NewGuard(NewMemStore(tc.token))
		if got := guard.Valid(); got != tc.valid {
			t.Fatalf("%s: expected valid=%v, got %v", tc.name, tc.valid, got)
		}
	}
}

func TestGuardEvictsExpiredToken(t *testing.T) {
	store := NewMemStore(mintToken(t, RoleUser, time.Now().Add(-time.Minute)))
	guard := NewGuard(store)

	if guard.Valid() {
		t.Fatalf("expected expired token to be invalid")
	}
	if store.Token() != "" {
		t.Fatalf("expected expired token to be evicted from the store")
	}
	// The next check sees a clean no-session state, not a stale token.
	if guard.Expired() {
		t.Fatalf("expected no expired state after eviction")
	}
}

func TestGuardEvictsMalformedToken(t *testing.T) {
	store := NewMemStore("corrupted")
	guard := NewGuard(store)

	if guard.Valid() {
		t.Fatalf("expected malformed token to be invalid")
	}
	if store.Token() != "" {
		t.Fatalf("expected malformed token to be evicted")
	}
}

func TestGuardExpiryIsCheckedLazily(t *testing.T) {
	// exp lands on a whole second in the token, so both checks sit well
	// clear of the truncation.
	exp := time.Now().Add(time.Hour)
	store := NewMemStore(mintToken(t, RoleUser, exp))
	guard := NewGuard(store)

	guard.now = func() time.Time { return exp.Add(-time.Minute) }
	if !guard.Valid() {
		t.Fatalf("expected token to be valid before exp")
	}
	guard.now = func() time.Time { return exp.Add(time.Minute) }
	if guard.Valid() {
		t.Fatalf("expected token to expire by the next access check")
	}
	if store.Token() != "" {
		t.Fatalf("expected the expired token to be evicted")
	}
}

func TestRequireRole(t *testing.T) {
	admin := NewGuard(NewMemStore(mintToken(t, RoleAdmin, time.Now().Add(time.Hour))))
	user := NewGuard(NewMemStore(mintToken(t, RoleUser, time.Now().Add(time.Hour))))

	if !admin.RequireRole(RoleAdmin) {
		t.Fatalf("expected admin token to satisfy admin role")
	}
	if user.RequireRole(RoleAdmin) {
		t.Fatalf("expected user token to fail admin role")
	}
	if !user.RequireRole(RoleUser) {
		t.Fatalf("expected user token to satisfy user role")
	}
}

func TestAuthorizeDecisions(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		required string
		want     Decision
	}{
		{"no session", "", "", RedirectLogin},
		{"expired", mintToken(t, RoleUser, time.Now().Add(-time.Hour)), "", RedirectLogin},
		{"valid user open route", mintToken(t, RoleUser, time.Now().Add(time.Hour)), "", Allow},
		{"user on admin route", mintToken(t, RoleUser, time.Now().Add(time.Hour)), RoleAdmin, RedirectHome},
		{"admin on admin route", mintToken(t, RoleAdmin, time.Now().Add(time.Hour)), RoleAdmin, Allow},
	}
	for _, tc := range cases {
		guard := NewGuard(NewMemStore(tc.token))
		if got := guard.Authorize(tc.required); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	if store.Token() != "" {
		t.Fatalf("expected empty token before set")
	}
	if err := store.Set("abc.def.ghi"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if got := store.Token(); got != "abc.def.ghi" {
		t.Fatalf("expected stored token back, got %q", got)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	if store.Token() != "" {
		t.Fatalf("expected empty token after clear")
	}
	// Clearing an already absent token is not an error.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear error: %v", err)
	}
}
