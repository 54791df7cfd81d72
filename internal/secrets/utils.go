package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopmate/sentinel/internal/common"
	"github.com/shopmate/sentinel/params"
)

var secretNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateSecretName accepts names of 3 to 100 characters drawn from
// letters, digits, dot, underscore and hyphen.
func ValidateSecretName(name string) bool {
	if len(name) < params.SecretNameMinLength || len(name) > params.SecretNameMaxLength {
		return false
	}
	return secretNamePattern.MatchString(name)
}

// GenerateSecureSecret returns length characters of URL-safe randomness.
func GenerateSecureSecret(length int) (string, error) {
	return common.GenerateSecret(length)
}

// GenerateAPIKey returns a key of the form "sk_<hex>".
func GenerateAPIKey() (string, error) {
	raw := make([]byte, params.APIKeyRandomBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(raw), nil
}

// GenerateJWTSecret returns a signing secret suitable for HMAC use.
func GenerateJWTSecret() (string, error) {
	return common.GenerateSecret(params.JWTSecretLength)
}

const (
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordDigits  = "23456789"
	passwordSpecial = "!@#$%^&*-_=+"
)

// GenerateDatabasePassword returns a random password guaranteed to contain
// at least one character from each class.
func GenerateDatabasePassword() (string, error) {
	alphabet := passwordUpper + passwordLower + passwordDigits + passwordSpecial
	chars := make([]byte, params.DatabasePasswordLength)
	// one from each class up front, the rest from the full alphabet
	classes := []string{passwordUpper, passwordLower, passwordDigits, passwordSpecial}
	for i := range chars {
		pool := alphabet
		if i < len(classes) {
			pool = classes[i]
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
		if err != nil {
			return "", err
		}
		chars[i] = pool[idx.Int64()]
	}
	// shuffle so the guaranteed characters are not positional
	for i := len(chars) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		chars[i], chars[j.Int64()] = chars[j.Int64()], chars[i]
	}
	return string(chars), nil
}

// SecretStrength scores a secret 0 to 6: one point each for length >= 8,
// length >= 12, uppercase, lowercase, digit and special character.
func SecretStrength(secret string) int {
	score := 0
	if len(secret) >= 8 {
		score++
	}
	if len(secret) >= 12 {
		score++
	}
	if strings.ContainsAny(secret, passwordUpper+"IO") {
		score++
	}
	if strings.ContainsAny(secret, passwordLower+"l") {
		score++
	}
	if strings.ContainsAny(secret, passwordDigits+"01") {
		score++
	}
	if strings.ContainsAny(secret, passwordSpecial+"()[]{}<>?/\\|~`'\";:,.") {
		score++
	}
	return score
}

// IsStrongSecret reports whether a secret scores at least 4.
func IsStrongSecret(secret string) bool {
	return SecretStrength(secret) >= 4
}
