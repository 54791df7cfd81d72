package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopmate/sentinel/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(Config{
		EncryptionKey:      "unit-test-master-key",
		Environment:        "test",
		EnableAuditLogging: true,
	}, store.NewMemoryStorage())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return mgr
}

var testAccessor = Accessor{ID: "admin", IP: "127.0.0.1", UserAgent: "go-test"}

// TestStoreAndGetSecret checks the encrypt-store-decrypt round trip and the
// metadata of a fresh secret.
func TestStoreAndGetSecret(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	meta, err := mgr.StoreSecret(ctx, "shopify.api-key", "sk_live_abc123", TypeAPIKey,
		StoreOptions{Tags: []string{"shopify", "prod"}}, testAccessor)
	if err != nil {
		t.Fatalf("StoreSecret() error: %v", err)
	}
	if meta.Version != 1 {
		t.Errorf("Version = %d, want 1", meta.Version)
	}
	if meta.Environment != "test" || meta.CreatedBy != "admin" {
		t.Errorf("metadata attribution wrong: %+v", meta)
	}
	if meta.RotationStrategy != RotationManual {
		t.Errorf("RotationStrategy = %s, want MANUAL default", meta.RotationStrategy)
	}

	value, err := mgr.GetSecret(ctx, meta.ID, testAccessor)
	if err != nil {
		t.Fatalf("GetSecret() error: %v", err)
	}
	if value != "sk_live_abc123" {
		t.Errorf("GetSecret() = %q, want original plaintext", value)
	}
}

// TestStoreSecretValidation checks name validation and per-environment name
// uniqueness among active secrets.
func TestStoreSecretValidation(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.StoreSecret(ctx, "x", "value", TypeCustom, StoreOptions{}, testAccessor); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("short name error = %v, want ErrInvalidName", err)
	}

	meta, err := mgr.StoreSecret(ctx, "dup-name", "value", TypeCustom, StoreOptions{}, testAccessor)
	if err != nil {
		t.Fatalf("StoreSecret() error: %v", err)
	}
	if _, err := mgr.StoreSecret(ctx, "dup-name", "other", TypeCustom, StoreOptions{}, testAccessor); !errors.Is(err, ErrSecretNameTaken) {
		t.Fatalf("duplicate name error = %v, want ErrSecretNameTaken", err)
	}

	// a soft-deleted secret frees its name
	if err := mgr.DeleteSecret(ctx, meta.ID, testAccessor); err != nil {
		t.Fatalf("DeleteSecret() error: %v", err)
	}
	if _, err := mgr.StoreSecret(ctx, "dup-name", "other", TypeCustom, StoreOptions{}, testAccessor); err != nil {
		t.Fatalf("reusing deleted name error = %v", err)
	}
}

// TestUpdateSecret checks that an update bumps the version on the metadata
// and value record together and serves the new plaintext.
func TestUpdateSecret(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	meta, err := mgr.StoreSecret(ctx, "jwt-secret", "old-value", TypeJWTSecret, StoreOptions{}, testAccessor)
	if err != nil {
		t.Fatalf("StoreSecret() error: %v", err)
	}
	if err := mgr.UpdateSecret(ctx, meta.ID, "new-value", testAccessor); err != nil {
		t.Fatalf("UpdateSecret() error: %v", err)
	}

	updated, err := mgr.GetSecretMetadata(meta.ID)
	if err != nil {
		t.Fatalf("GetSecretMetadata() error: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}
	value, err := mgr.GetSecret(ctx, meta.ID, testAccessor)
	if err != nil {
		t.Fatalf("GetSecret() error: %v", err)
	}
	if value != "new-value" {
		t.Errorf("GetSecret() = %q, want new-value", value)
	}

	if err := mgr.UpdateSecret(ctx, "no-such-id", "value", testAccessor); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("update of unknown secret error = %v, want ErrSecretNotFound", err)
	}
}

// TestRotateSecret checks the rotation scenario: new value, bumped version,
// lastRotated stamped.
func TestRotateSecret(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	meta, err := mgr.StoreSecret(ctx, "db-password", "p@ss1", TypeDatabasePassword,
		StoreOptions{RotationStrategy: RotationScheduled}, testAccessor)
	if err != nil {
		t.Fatalf("StoreSecret() error: %v", err)
	}
	if err := mgr.RotateSecret(ctx, meta.ID, "p@ss2", testAccessor); err != nil {
		t.Fatalf("RotateSecret() error: %v", err)
	}

	rotated, _ := mgr.GetSecretMetadata(meta.ID)
	if rotated.Version != 2 {
		t.Errorf("Version = %d, want 2", rotated.Version)
	}
	if rotated.LastRotated == nil {
		t.Fatalf("LastRotated not stamped")
	}
	value, _ := mgr.GetSecret(ctx, meta.ID, testAccessor)
	if value != "p@ss2" {
		t.Errorf("GetSecret() = %q, want p@ss2", value)
	}
}

// TestDeleteSecretIsSoft checks that deletion keeps metadata for the audit
// trail while making the secret unreadable.
func TestDeleteSecretIsSoft(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	meta, _ := mgr.StoreSecret(ctx, "webhook-secret", "value", TypeWebhookSecret, StoreOptions{}, testAccessor)
	if err := mgr.DeleteSecret(ctx, meta.ID, testAccessor); err != nil {
		t.Fatalf("DeleteSecret() error: %v", err)
	}
	if _, err := mgr.GetSecret(ctx, meta.ID, testAccessor); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("GetSecret() after delete error = %v, want ErrSecretNotFound", err)
	}
	kept, err := mgr.GetSecretMetadata(meta.ID)
	if err != nil {
		t.Fatalf("GetSecretMetadata() after delete error: %v", err)
	}
	if kept.IsActive {
		t.Errorf("deleted secret still active")
	}
	if err := mgr.DeleteSecret(ctx, meta.ID, testAccessor); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("second delete error = %v, want ErrSecretNotFound", err)
	}
}

// TestExpiredSecretUnreadable checks that an expired secret behaves like a
// missing one even while still marked active.
func TestExpiredSecretUnreadable(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	meta, err := mgr.StoreSecret(ctx, "expired-token", "value", TypeOAuthSecret,
		StoreOptions{ExpiresAt: &past}, testAccessor)
	if err != nil {
		t.Fatalf("StoreSecret() error: %v", err)
	}
	if _, err := mgr.GetSecret(ctx, meta.ID, testAccessor); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("GetSecret() of expired secret error = %v, want ErrSecretNotFound", err)
	}
}

// TestNeedsRotation checks each rotation strategy.
func TestNeedsRotation(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	manual, _ := mgr.StoreSecret(ctx, "manual-secret", "v", TypeCustom,
		StoreOptions{RotationStrategy: RotationManual}, testAccessor)
	if due, _ := mgr.NeedsRotation(manual.ID); due {
		t.Errorf("MANUAL secret reported due for rotation")
	}

	past := time.Now().Add(-time.Hour)
	autoExpired, _ := mgr.StoreSecret(ctx, "auto-expired", "v", TypeCustom,
		StoreOptions{RotationStrategy: RotationAutomatic, ExpiresAt: &past}, testAccessor)
	if due, _ := mgr.NeedsRotation(autoExpired.ID); !due {
		t.Errorf("expired AUTOMATIC secret not due for rotation")
	}

	future := time.Now().Add(time.Hour)
	autoFresh, _ := mgr.StoreSecret(ctx, "auto-fresh", "v", TypeCustom,
		StoreOptions{RotationStrategy: RotationAutomatic, ExpiresAt: &future}, testAccessor)
	if due, _ := mgr.NeedsRotation(autoFresh.ID); due {
		t.Errorf("unexpired AUTOMATIC secret reported due")
	}

	scheduled, _ := mgr.StoreSecret(ctx, "scheduled-secret", "v", TypeCustom,
		StoreOptions{RotationStrategy: RotationScheduled}, testAccessor)
	if due, _ := mgr.NeedsRotation(scheduled.ID); !due {
		t.Errorf("never-rotated SCHEDULED secret not due")
	}
	if err := mgr.RotateSecret(ctx, scheduled.ID, "v2", testAccessor); err != nil {
		t.Fatalf("RotateSecret() error: %v", err)
	}
	if due, _ := mgr.NeedsRotation(scheduled.ID); due {
		t.Errorf("freshly rotated SCHEDULED secret reported due")
	}

	// age the last rotation past the configured interval
	stale := time.Now().Add(-91 * 24 * time.Hour)
	mgr.mu.Lock()
	mgr.metadata[scheduled.ID].LastRotated = &stale
	mgr.mu.Unlock()
	if due, _ := mgr.NeedsRotation(scheduled.ID); !due {
		t.Errorf("stale SCHEDULED secret not due")
	}

	if _, err := mgr.NeedsRotation("no-such-id"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("NeedsRotation() of unknown secret error = %v, want ErrSecretNotFound", err)
	}

	due := mgr.SecretsNeedingRotation()
	ids := make(map[string]bool)
	for _, meta := range due {
		ids[meta.ID] = true
	}
	if !ids[autoExpired.ID] || !ids[scheduled.ID] || ids[manual.ID] || ids[autoFresh.ID] {
		t.Errorf("SecretsNeedingRotation() = %v", ids)
	}
}

// TestSecretQueries checks listing by type and by tags.
func TestSecretQueries(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	mgr.StoreSecret(ctx, "key-one", "v", TypeAPIKey, StoreOptions{Tags: []string{"shopify"}}, testAccessor)
	mgr.StoreSecret(ctx, "key-two", "v", TypeAPIKey, StoreOptions{Tags: []string{"internal"}}, testAccessor)
	mgr.StoreSecret(ctx, "db-pass", "v", TypeDatabasePassword, StoreOptions{Tags: []string{"internal", "db"}}, testAccessor)

	all := mgr.ListSecrets()
	if len(all) != 3 {
		t.Fatalf("ListSecrets() returned %d, want 3", len(all))
	}
	if all[0].Name != "db-pass" {
		t.Errorf("ListSecrets() not sorted by name: first is %s", all[0].Name)
	}
	if keys := mgr.SecretsByType(TypeAPIKey); len(keys) != 2 {
		t.Errorf("SecretsByType(API_KEY) returned %d, want 2", len(keys))
	}
	if tagged := mgr.SecretsByTags([]string{"shopify", "db"}); len(tagged) != 2 {
		t.Errorf("SecretsByTags() returned %d, want 2", len(tagged))
	}
}

// TestAccessLogRecordsFailures checks that a failed read lands in the access
// log with its reason.
func TestAccessLogRecordsFailures(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.GetSecret(ctx, "no-such-id", testAccessor); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("GetSecret() error = %v, want ErrSecretNotFound", err)
	}
	entries := mgr.AccessLogPage(1, 10)
	if len(entries) != 1 {
		t.Fatalf("access log has %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Success || entry.Action != AccessRead || entry.AccessedBy != "admin" || entry.Error == "" {
		t.Errorf("unexpected access log entry: %+v", entry)
	}
}

// TestConfigSanitizePinsVersionCap checks that a missing or nonsense
// version cap is pinned to keeping the latest version only.
func TestConfigSanitizePinsVersionCap(t *testing.T) {
	for _, n := range []int{0, -5} {
		cfg := Config{MaxSecretVersions: n}
		cfg.sanitize()
		if cfg.MaxSecretVersions != 1 {
			t.Errorf("MaxSecretVersions(%d) sanitized to %d, want 1", n, cfg.MaxSecretVersions)
		}
	}
	cfg := Config{MaxSecretVersions: 3}
	cfg.sanitize()
	if cfg.MaxSecretVersions != 3 {
		t.Errorf("MaxSecretVersions(3) sanitized to %d, want 3", cfg.MaxSecretVersions)
	}
}
