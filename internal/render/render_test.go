package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resetRenderState clears globals between tests to avoid cross-test interference.
func resetRenderState() {
	globalVars = nil
	templateDir = ""
	embedTemplate = nil
}

// TestRenderHTML_EmbeddedOnly verifies that when no templateDir is configured,
// RenderHTML uses embedded templates successfully.
func TestRenderHTML_EmbeddedOnly(t *testing.T) {
	resetRenderState()
	if err := Initialize(map[string]interface{}{"appName": "sentinel"}, ""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	out, err := RenderHTML("mail/security-alert", map[string]interface{}{
		"ruleName":    "brute-force-detection",
		"threatLevel": "HIGH",
	})
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if !strings.Contains(out, "brute-force-detection") || !strings.Contains(out, "sentinel") {
		t.Fatalf("rendered output missing expected variables")
	}
}

// TestRenderHTML_DirOverridesEmbedded verifies that a valid template in the
// configured directory overrides the embedded one.
func TestRenderHTML_DirOverridesEmbedded(t *testing.T) {
	resetRenderState()
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "mail"), 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}
	content := "OVERRIDE_ALERT"
	path := filepath.Join(tmpDir, "mail", "security-alert.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp template: %v", err)
	}

	if err := Initialize(map[string]interface{}{}, tmpDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	out, err := RenderHTML("mail/security-alert.html", nil)
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if out != content {
		t.Fatalf("expected overridden content %q, got %q", content, out)
	}
}

// TestRenderHTML_FallbackOnDiskFailure ensures that when the disk template is
// unreadable or invalid, RenderHTML falls back to embedded templates.
func TestRenderHTML_FallbackOnDiskFailure(t *testing.T) {
	resetRenderState()
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "mail"), 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}
	broken := "{{ ." // invalid template syntax
	path := filepath.Join(tmpDir, "mail", "security-escalation.html")
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatalf("failed to write broken temp template: %v", err)
	}

	if err := Initialize(map[string]interface{}{}, tmpDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	out, err := RenderHTML("mail/security-escalation", nil)
	if err != nil {
		t.Fatalf("RenderHTML should have fallen back to embedded template, got error: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty HTML from embedded fallback")
	}
}
