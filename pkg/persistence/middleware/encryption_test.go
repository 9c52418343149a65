package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/persistence/middleware"
	"github.com/aretw0/relay/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secretCheckpoint(id string) *domain.Checkpoint {
	cp := domain.NewCheckpoint(id)
	cp.State.Profile = domain.Profile{"Email": "ada@example.com"}
	cp.State.Append(domain.UserMessage("my card is 4111"))
	cp.Status = domain.StatusSuspended
	cp.PendingNode = domain.NodeCustomerSensitiveTools
	return cp
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"

	if err := secureStore.Save(ctx, sessionID, secretCheckpoint(sessionID)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.State.Messages) != 0 {
		t.Fatalf("Expected messages to be hidden, found %d", len(stored.State.Messages))
	}
	if _, ok := stored.State.Profile["Email"]; ok {
		t.Fatal("Expected profile to be hidden")
	}
	if _, ok := stored.State.Profile[middleware.EnvelopeKey]; !ok {
		t.Fatal("Expected envelope key in profile")
	}
	if stored.Status != domain.StatusSuspended || stored.PendingNode != domain.NodeCustomerSensitiveTools {
		t.Errorf("Expected status and pending node to stay readable, got %s/%s", stored.Status, stored.PendingNode)
	}

	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.State.Profile["Email"] != "ada@example.com" {
		t.Errorf("Expected 'ada@example.com', got %v", loaded.State.Profile["Email"])
	}
	if len(loaded.State.Messages) != 1 || loaded.State.Messages[0].Content != "my card is 4111" {
		t.Errorf("Unexpected messages after decrypt: %+v", loaded.State.Messages)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"
	cp := domain.NewCheckpoint(sessionID)
	cp.State.Append(domain.UserMessage("encrypted-with-old-key"))

	if err := secureStoreOld.Save(ctx, sessionID, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.State.Messages[0].Content != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.State.Messages[0].Content = "encrypted-with-new-key"
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainCheckpoint(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()
	_ = underlyingStore.Save(ctx, "plain", domain.NewCheckpoint("plain"))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain checkpoint to be rejected")
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunCheckpointStoreContract(t, store)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
