package secrets

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopmate/sentinel/internal/events"
	"github.com/shopmate/sentinel/internal/metrics"
	"github.com/shopmate/sentinel/internal/store"
	"github.com/shopmate/sentinel/params"
)

type Config struct {
	EncryptionKey       string
	Environment         string
	EnableAuditLogging  bool
	EnableRotation      bool
	DefaultRotationDays int
	MaxSecretVersions   int // accepted for compatibility; only the latest version is kept
	EnableAccessControl bool
}

func (c *Config) sanitize() {
	if c.DefaultRotationDays < 1 {
		c.DefaultRotationDays = params.SecretsDefaultRotationDays
	}
	if c.MaxSecretVersions < 1 {
		c.MaxSecretVersions = 1
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
}

// SecretEvent is the payload of the secret lifecycle notifications.
type SecretEvent struct {
	SecretID string
	Name     string
	Action   AccessAction
	Actor    string
}

type Notifications struct {
	SecretStored   *events.Topic[SecretEvent]
	SecretAccessed *events.Topic[SecretEvent]
	SecretUpdated  *events.Topic[SecretEvent]
	SecretRotated  *events.Topic[SecretEvent]
	SecretDeleted  *events.Topic[SecretEvent]
}

// StoreOptions carries the optional attributes of a new secret.
type StoreOptions struct {
	Tags             []string
	ExpiresAt        *time.Time
	RotationStrategy RotationStrategy
}

// Manager is the encrypted secrets store: metadata in memory, ciphertext
// in the configured KV backend, every operation audited. All mutation is
// serialized behind one mutex.
type Manager struct {
	cfg    Config
	cipher *Cipher
	values store.Store[SecretValue]
	topics *Notifications

	mu        sync.Mutex
	metadata  map[string]*SecretMetadata
	accessLog *accessLog
}

func NewManager(cfg Config, storage store.Storage) (*Manager, error) {
	cfg.sanitize()
	cipher, err := NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       cfg,
		cipher:    cipher,
		values:    store.New[SecretValue](storage, params.SecretValueKeyPrefix),
		metadata:  make(map[string]*SecretMetadata),
		accessLog: newAccessLog(params.SecretsAccessLogHighWater),
		topics: &Notifications{
			SecretStored:   events.NewTopic[SecretEvent](),
			SecretAccessed: events.NewTopic[SecretEvent](),
			SecretUpdated:  events.NewTopic[SecretEvent](),
			SecretRotated:  events.NewTopic[SecretEvent](),
			SecretDeleted:  events.NewTopic[SecretEvent](),
		},
	}, nil
}

func (m *Manager) Notifications() *Notifications {
	return m.topics
}

func (m *Manager) logAccess(secretID string, action AccessAction, accessor Accessor, success bool, errMsg string) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	metrics.SecretAccessTotal.WithLabelValues(string(action), outcome).Inc()
	if !m.cfg.EnableAuditLogging {
		return
	}
	m.accessLog.append(secretID, action, accessor, success, errMsg)
}

// StoreSecret encrypts and stores a new secret at version 1. Names are
// unique per environment among active secrets.
func (m *Manager) StoreSecret(ctx context.Context, name string, value string, secretType SecretType, opts StoreOptions, accessor Accessor) (*SecretMetadata, error) {
	if !ValidateSecretName(name) {
		return nil, ErrInvalidName
	}
	if opts.RotationStrategy == "" {
		opts.RotationStrategy = RotationManual
	}

	encrypted, err := m.cipher.Encrypt(value)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.metadata {
		if existing.IsActive && existing.Name == name {
			m.logAccess("", AccessWrite, accessor, false, ErrSecretNameTaken.Error())
			return nil, ErrSecretNameTaken
		}
	}

	now := time.Now()
	meta := &SecretMetadata{
		ID:               uuid.NewString(),
		Name:             name,
		Type:             secretType,
		Tags:             opts.Tags,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        opts.ExpiresAt,
		RotationStrategy: opts.RotationStrategy,
		Version:          1,
		IsActive:         true,
		Environment:      m.cfg.Environment,
		CreatedBy:        accessor.ID,
	}
	record := SecretValue{
		ID:             meta.ID,
		EncryptedValue: encrypted,
		Version:        1,
		CreatedAt:      now,
		IsActive:       true,
	}
	if err := m.values.Save(ctx, meta.ID, record); err != nil {
		m.logAccess(meta.ID, AccessWrite, accessor, false, err.Error())
		return nil, err
	}
	m.metadata[meta.ID] = meta
	m.logAccess(meta.ID, AccessWrite, accessor, true, "")
	m.topics.SecretStored.Publish(SecretEvent{SecretID: meta.ID, Name: name, Action: AccessWrite, Actor: accessor.ID})
	slog.Info("Secret stored", "secret", meta.ID, "name", name, "type", secretType)
	return meta, nil
}

// GetSecret decrypts and returns the plaintext. Absent, inactive, expired
// and undecryptable secrets are indistinguishable to the caller; the
// access log records the underlying reason.
func (m *Manager) GetSecret(ctx context.Context, id string, accessor Accessor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.metadata[id]
	if !ok || !meta.IsActive {
		m.logAccess(id, AccessRead, accessor, false, "secret missing or inactive")
		return "", ErrSecretNotFound
	}
	if meta.ExpiresAt != nil && meta.ExpiresAt.Before(time.Now()) {
		m.logAccess(id, AccessRead, accessor, false, "secret expired")
		return "", ErrSecretNotFound
	}

	record, err := m.values.Get(ctx, id)
	if err != nil || !record.IsActive {
		m.logAccess(id, AccessRead, accessor, false, "value record missing or inactive")
		return "", ErrSecretNotFound
	}
	plaintext, err := m.cipher.Decrypt(record.EncryptedValue)
	if err != nil {
		m.logAccess(id, AccessRead, accessor, false, err.Error())
		return "", ErrSecretNotFound
	}

	m.logAccess(id, AccessRead, accessor, true, "")
	m.topics.SecretAccessed.Publish(SecretEvent{SecretID: id, Name: meta.Name, Action: AccessRead, Actor: accessor.ID})
	return plaintext, nil
}

// UpdateSecret re-encrypts the value and bumps the version on both the
// metadata and the value record in lockstep.
func (m *Manager) UpdateSecret(ctx context.Context, id string, newValue string, accessor Accessor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateLocked(ctx, id, newValue, accessor); err != nil {
		return err
	}
	meta := m.metadata[id]
	m.topics.SecretUpdated.Publish(SecretEvent{SecretID: id, Name: meta.Name, Action: AccessWrite, Actor: accessor.ID})
	return nil
}

func (m *Manager) updateLocked(ctx context.Context, id string, newValue string, accessor Accessor) error {
	meta, ok := m.metadata[id]
	if !ok || !meta.IsActive {
		m.logAccess(id, AccessWrite, accessor, false, "secret missing or inactive")
		return ErrSecretNotFound
	}
	encrypted, err := m.cipher.Encrypt(newValue)
	if err != nil {
		m.logAccess(id, AccessWrite, accessor, false, err.Error())
		return err
	}
	record, err := m.values.Get(ctx, id)
	if err != nil {
		m.logAccess(id, AccessWrite, accessor, false, err.Error())
		return ErrSecretNotFound
	}

	record.EncryptedValue = encrypted
	record.Version++
	if err := m.values.Save(ctx, id, record); err != nil {
		m.logAccess(id, AccessWrite, accessor, false, err.Error())
		return err
	}
	meta.Version = record.Version
	meta.UpdatedAt = time.Now()
	m.logAccess(id, AccessWrite, accessor, true, "")
	return nil
}

// RotateSecret is an update that also stamps lastRotated.
func (m *Manager) RotateSecret(ctx context.Context, id string, newValue string, accessor Accessor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.updateLocked(ctx, id, newValue, accessor); err != nil {
		return err
	}
	meta := m.metadata[id]
	now := time.Now()
	meta.LastRotated = &now
	m.logAccess(id, AccessRotate, accessor, true, "")
	m.topics.SecretRotated.Publish(SecretEvent{SecretID: id, Name: meta.Name, Action: AccessRotate, Actor: accessor.ID})
	slog.Info("Secret rotated", "secret", id, "version", meta.Version)
	return nil
}

// DeleteSecret soft-deletes: both records flip inactive and stay around
// for the audit trail, but the secret is no longer readable.
func (m *Manager) DeleteSecret(ctx context.Context, id string, accessor Accessor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.metadata[id]
	if !ok || !meta.IsActive {
		m.logAccess(id, AccessDelete, accessor, false, "secret missing or inactive")
		return ErrSecretNotFound
	}
	record, err := m.values.Get(ctx, id)
	if err == nil {
		record.IsActive = false
		if saveErr := m.values.Save(ctx, id, record); saveErr != nil {
			m.logAccess(id, AccessDelete, accessor, false, saveErr.Error())
			return saveErr
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		m.logAccess(id, AccessDelete, accessor, false, err.Error())
		return err
	}

	meta.IsActive = false
	meta.UpdatedAt = time.Now()
	m.logAccess(id, AccessDelete, accessor, true, "")
	m.topics.SecretDeleted.Publish(SecretEvent{SecretID: id, Name: meta.Name, Action: AccessDelete, Actor: accessor.ID})
	slog.Info("Secret deleted", "secret", id)
	return nil
}

// NeedsRotation applies the secret's rotation strategy: MANUAL never,
// AUTOMATIC when expired, SCHEDULED when the rotation interval has passed
// since the last rotation (or always, if never rotated).
func (m *Manager) NeedsRotation(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.metadata[id]
	if !ok {
		return false, ErrSecretNotFound
	}
	switch meta.RotationStrategy {
	case RotationAutomatic:
		return meta.ExpiresAt != nil && meta.ExpiresAt.Before(time.Now()), nil
	case RotationScheduled:
		if meta.LastRotated == nil {
			return true, nil
		}
		days := time.Since(*meta.LastRotated).Hours() / 24
		return days >= float64(m.cfg.DefaultRotationDays), nil
	default:
		return false, nil
	}
}

// SecretsNeedingRotation lists active secrets due for rotation.
func (m *Manager) SecretsNeedingRotation() []*SecretMetadata {
	active := m.ListSecrets()
	var due []*SecretMetadata
	for _, meta := range active {
		if needs, err := m.NeedsRotation(meta.ID); err == nil && needs {
			due = append(due, meta)
		}
	}
	return due
}

// GetSecretMetadata returns the metadata for any known secret, active or
// soft-deleted.
func (m *Manager) GetSecretMetadata(id string) (*SecretMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metadata[id]
	if !ok {
		return nil, ErrSecretNotFound
	}
	snapshot := *meta
	return &snapshot, nil
}

// ListSecrets returns active secrets sorted by name.
func (m *Manager) ListSecrets() []*SecretMetadata {
	m.mu.Lock()
	list := make([]*SecretMetadata, 0, len(m.metadata))
	for _, meta := range m.metadata {
		if meta.IsActive {
			snapshot := *meta
			list = append(list, &snapshot)
		}
	}
	m.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// SecretsByType filters active secrets by type.
func (m *Manager) SecretsByType(secretType SecretType) []*SecretMetadata {
	var filtered []*SecretMetadata
	for _, meta := range m.ListSecrets() {
		if meta.Type == secretType {
			filtered = append(filtered, meta)
		}
	}
	return filtered
}

// SecretsByTags returns active secrets carrying any of the given tags.
func (m *Manager) SecretsByTags(tags []string) []*SecretMetadata {
	wanted := make(map[string]bool, len(tags))
	for _, tag := range tags {
		wanted[tag] = true
	}
	var filtered []*SecretMetadata
	for _, meta := range m.ListSecrets() {
		for _, tag := range meta.Tags {
			if wanted[tag] {
				filtered = append(filtered, meta)
				break
			}
		}
	}
	return filtered
}

// AccessLogPage returns one page of access log entries, newest first.
func (m *Manager) AccessLogPage(pageNum, pageSize int) []*AccessLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessLog.page(pageNum, pageSize)
}

func (m *Manager) AccessLogSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessLog.size()
}
