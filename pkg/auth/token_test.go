package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func TestManagerRoundTrip(t *testing.T) {
	manager, store := NewMockManager()

	err := manager.Store(&Token{AccessToken: "vk1.a.secret-token-value", OwnerID: -42})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 token in store, got %d", store.Count())
	}

	token, err := manager.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if token.Profile != DefaultProfile {
		t.Errorf("profile = %q, want %q", token.Profile, DefaultProfile)
	}
	if token.OwnerID != -42 {
		t.Errorf("owner = %d, want -42", token.OwnerID)
	}
	if token.LastModified.IsZero() {
		t.Error("LastModified should be stamped")
	}

	raw, err := manager.AccessToken(DefaultProfile)
	if err != nil || raw != "vk1.a.secret-token-value" {
		t.Errorf("AccessToken = %q, %v", raw, err)
	}

	if err := manager.Delete(""); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Retrieve(DefaultProfile); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound after delete, got %v", err)
	}
	if err := manager.Delete(DefaultProfile); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound deleting twice, got %v", err)
	}
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	manager, _ := NewMockManager()
	if err := manager.Store(&Token{Profile: "shop"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if err := manager.Store(nil); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for nil, got %v", err)
	}
}

func TestManagerFallsThroughStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	broken.RetrieveError = errors.New("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	if err := manager.Store(&Token{Profile: "shop", AccessToken: "abc"}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !working.Exists("shop") {
		t.Fatal("token should land in the second store")
	}

	token, err := manager.Retrieve("shop")
	if err != nil || token.AccessToken != "abc" {
		t.Errorf("Retrieve = %+v, %v", token, err)
	}

	working.StoreError = errors.New("disk full")
	err = manager.Store(&Token{Profile: "shop", AccessToken: "abc"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected last store error, got %v", err)
	}
}

func TestManagerListKeepsNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	now := time.Now()

	_ = older.Store(&Token{Profile: "shop", AccessToken: "old", LastModified: now.Add(-time.Hour)})
	_ = newer.Store(&Token{Profile: "shop", AccessToken: "new", LastModified: now})
	_ = newer.Store(&Token{Profile: "another", AccessToken: "x", LastModified: now})

	tokens, err := NewManagerWithStores(older, newer).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(tokens))
	}
	if tokens[0].Profile != "another" || tokens[1].AccessToken != "new" {
		t.Errorf("unexpected list: %+v %+v", tokens[0], tokens[1])
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(envPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "tokens.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}

	if _, err := store.Retrieve("shop"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound on missing file, got %v", err)
	}

	for _, profile := range []string{"shop", "backup"} {
		if err := store.Store(&Token{Profile: profile, AccessToken: "plaintext-" + profile}); err != nil {
			t.Fatalf("Store %s failed: %v", profile, err)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("plaintext-shop")) {
		t.Error("token file contains the plaintext token")
	}

	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	token, err := reopened.Retrieve("shop")
	if err != nil || token.AccessToken != "plaintext-shop" {
		t.Errorf("Retrieve after reopen = %+v, %v", token, err)
	}

	list, err := reopened.List()
	if err != nil || len(list) != 2 || list[0].Profile != "backup" {
		t.Errorf("List = %v, %v", list, err)
	}

	if err := reopened.Delete("shop"); err != nil {
		t.Fatal(err)
	}
	if err := reopened.Delete("backup"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed with the last profile")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	t.Setenv(envPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Token{Profile: "shop", AccessToken: "abc"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv(envPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = other.Retrieve("shop")
	if err == nil || errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected a decryption error, got %v", err)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("NewKeyringStore failed: %v", err)
	}

	if err := store.Store(&Token{Profile: "shop", AccessToken: "kr-token", OwnerID: -7}); err != nil {
		t.Fatal(err)
	}
	if !store.Exists("shop") {
		t.Error("token should exist")
	}

	token, err := store.Retrieve("shop")
	if err != nil || token.OwnerID != -7 {
		t.Errorf("Retrieve = %+v, %v", token, err)
	}

	if err := store.Delete("shop"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Retrieve("shop"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
	if err := store.Delete("shop"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(envAccessToken, "")
	if _, err := store.Retrieve(""); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound without env, got %v", err)
	}

	t.Setenv(envAccessToken, "env-token")
	t.Setenv(envOwnerID, "-12345")

	token, err := store.Retrieve("")
	if err != nil {
		t.Fatal(err)
	}
	if token.AccessToken != "env-token" || token.OwnerID != -12345 || token.Profile != DefaultProfile {
		t.Errorf("unexpected token: %+v", token)
	}
	if err := store.Store(token); err != ErrStoreUnavailable {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMasked(t *testing.T) {
	token := &Token{Profile: "shop", AccessToken: "vk1.a.0123456789abcdef"}
	masked := token.Masked()

	if masked.AccessToken != "vk1....cdef" {
		t.Errorf("masked = %q", masked.AccessToken)
	}
	if token.AccessToken != "vk1.a.0123456789abcdef" {
		t.Error("original must not change")
	}
	if (&Token{AccessToken: "short"}).Masked().AccessToken != "********" {
		t.Error("short tokens are fully masked")
	}
}

func TestWriteTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteTokenGuide(&buf)
	if !strings.Contains(buf.String(), "catalogsync auth set-token") {
		t.Error("guide should mention the set-token command")
	}
}
