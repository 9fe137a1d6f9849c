package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("GetUserIDByToken = %q, %v, %v", userID, ok, err)
	}

	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("deleted token should miss, ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("expired token should miss, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("0123456789abcdef0123456789abcdef", time.Minute, NewMemoryTokenRevoker(), JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("GetUserIDByToken = %q, %v, %v", userID, ok, err)
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Minute, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected error for short secret")
	}
}

func TestJWTSessionStoreInvalidTokenMissesWithoutError(t *testing.T) {
	s, err := NewJWTSessionStore("0123456789abcdef0123456789abcdef", time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken("not-a-jwt"); err != nil || ok {
		t.Fatalf("garbage token = ok %v, err %v; want miss without error", ok, err)
	}
}

func TestJWTSessionStoreEnforcesAudience(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	signing, err := NewJWTSessionStore(secret, time.Minute, nil, JWTOptions{Audience: "aud-a"})
	if err != nil {
		t.Fatalf("new signing store: %v", err)
	}
	verify, err := NewJWTSessionStore(secret, time.Minute, nil, JWTOptions{Audience: "aud-b"})
	if err != nil {
		t.Fatalf("new verify store: %v", err)
	}
	token, err := signing.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := verify.GetUserIDByToken(token); ok {
		t.Fatalf("audience mismatch should not validate")
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s, err := NewJWTSessionStore("0123456789abcdef0123456789abcdef", time.Minute, revoker, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("revoked token should miss, ok=%v err=%v", ok, err)
	}
}
