package secrets

import (
	"strings"
	"testing"
)

// TestValidateSecretName checks length bounds and the allowed character set.
func TestValidateSecretName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"shopify.api-key_prod", true},
		{"abc", true},
		{"ab", false},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
		{"bad name", false},
		{"bad/name", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateSecretName(tt.name); got != tt.valid {
			t.Errorf("ValidateSecretName(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

// TestGenerateAPIKey checks the key prefix and hex payload length.
func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error: %v", err)
	}
	if !strings.HasPrefix(key, "sk_") {
		t.Fatalf("GenerateAPIKey() = %q, want sk_ prefix", key)
	}
	if len(key) != 3+64 {
		t.Fatalf("GenerateAPIKey() length = %d, want %d", len(key), 3+64)
	}
	other, _ := GenerateAPIKey()
	if key == other {
		t.Fatalf("GenerateAPIKey() repeated itself")
	}
}

// TestGenerateJWTSecret checks the generated secret length.
func TestGenerateJWTSecret(t *testing.T) {
	secret, err := GenerateJWTSecret()
	if err != nil {
		t.Fatalf("GenerateJWTSecret() error: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("GenerateJWTSecret() length = %d, want 64", len(secret))
	}
}

// TestGenerateDatabasePassword checks that every character class is
// represented.
func TestGenerateDatabasePassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		password, err := GenerateDatabasePassword()
		if err != nil {
			t.Fatalf("GenerateDatabasePassword() error: %v", err)
		}
		if !strings.ContainsAny(password, passwordUpper) ||
			!strings.ContainsAny(password, passwordLower) ||
			!strings.ContainsAny(password, passwordDigits) ||
			!strings.ContainsAny(password, passwordSpecial) {
			t.Fatalf("GenerateDatabasePassword() = %q, missing a character class", password)
		}
	}
}

// TestSecretStrength checks the scoring rubric and the strength threshold.
func TestSecretStrength(t *testing.T) {
	tests := []struct {
		secret string
		score  int
		strong bool
	}{
		{"", 0, false},
		{"abc", 1, false},
		{"abcdefgh", 2, false},
		{"Abcdefg1", 4, true},
		{"Abcdef1!", 5, true},
		{"Str0ng!Passw0rd", 6, true},
	}
	for _, tt := range tests {
		if got := SecretStrength(tt.secret); got != tt.score {
			t.Errorf("SecretStrength(%q) = %d, want %d", tt.secret, got, tt.score)
		}
		if got := IsStrongSecret(tt.secret); got != tt.strong {
			t.Errorf("IsStrongSecret(%q) = %v, want %v", tt.secret, got, tt.strong)
		}
	}
}
