package params

import "time"

const (
	ServerBodyLimit    = 1048576 // 1 MiB
	ServerIdleTimeout  = 30 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second

	SecretValueKeyPrefix = "sv:" // encrypted secret values in the backing store

	AuditDefaultBatchSize     = 50
	AuditDefaultFlushInterval = 30 * time.Second
	AuditMaxBufferedEvents    = 10000 // buffer bound; oldest events are dropped past this

	MonitorFeedBufferSize   = 4096           // audit-to-monitor bridge channel capacity
	MonitorMaxHistoryEvents = 10000          // event history capacity
	MonitorHistoryMaxAge    = 24 * time.Hour // history entries older than this are pruned
	MonitorDefaultBlockTTL  = 24 * time.Hour // auto-unblock delay when block_ip gives no duration

	SecretsDefaultRotationDays = 90
	SecretsAccessLogHighWater  = 10000 // oldest half dropped once exceeded
	SecretNameMinLength        = 3
	SecretNameMaxLength        = 100
	APIKeyRandomBytes          = 32 // sk_ + 64 hex chars
	JWTSecretLength            = 64
	DatabasePasswordLength     = 24

	AccessTokenExpiration = 1 * time.Hour // admin API bearer tokens
	HealthCheckServerAddr = ":3001"       // health check and metrics server address
)
