package secrets

import "time"

type SecretType string

const (
	TypeAPIKey           SecretType = "API_KEY"
	TypeDatabasePassword SecretType = "DATABASE_PASSWORD"
	TypeJWTSecret        SecretType = "JWT_SECRET"
	TypeEncryptionKey    SecretType = "ENCRYPTION_KEY"
	TypeOAuthSecret      SecretType = "OAUTH_SECRET"
	TypeWebhookSecret    SecretType = "WEBHOOK_SECRET"
	TypeCustom           SecretType = "CUSTOM"
)

type RotationStrategy string

const (
	RotationManual    RotationStrategy = "MANUAL"
	RotationAutomatic RotationStrategy = "AUTOMATIC"
	RotationScheduled RotationStrategy = "SCHEDULED"
)

// SecretMetadata describes a stored secret without exposing its value.
// Version always mirrors the paired SecretValue's version.
type SecretMetadata struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Type             SecretType       `json:"type"`
	Tags             []string         `json:"tags,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	ExpiresAt        *time.Time       `json:"expiresAt,omitempty"`
	RotationStrategy RotationStrategy `json:"rotationStrategy"`
	LastRotated      *time.Time       `json:"lastRotated,omitempty"`
	Version          int              `json:"version"`
	IsActive         bool             `json:"isActive"`
	Environment      string           `json:"environment"`
	CreatedBy        string           `json:"createdBy"`
}

// SecretValue is the persisted side of a secret. Only ciphertext is ever
// stored or serialized; plaintext exists transiently inside Manager calls.
type SecretValue struct {
	ID             string    `json:"id"`
	EncryptedValue string    `json:"encryptedValue"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	IsActive       bool      `json:"isActive"`
}

type AccessAction string

const (
	AccessRead   AccessAction = "READ"
	AccessWrite  AccessAction = "WRITE"
	AccessDelete AccessAction = "DELETE"
	AccessRotate AccessAction = "ROTATE"
)

// AccessLogEntry is one append-only audit record of a secret operation.
type AccessLogEntry struct {
	ID         string       `json:"id"`
	SecretID   string       `json:"secretId"`
	AccessedBy string       `json:"accessedBy"`
	AccessedAt time.Time    `json:"accessedAt"`
	Action     AccessAction `json:"action"`
	IPAddress  string       `json:"ipAddress,omitempty"`
	UserAgent  string       `json:"userAgent,omitempty"`
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
}

// Accessor identifies who performs a secret operation, for the access log.
type Accessor struct {
	ID        string
	IP        string
	UserAgent string
}
