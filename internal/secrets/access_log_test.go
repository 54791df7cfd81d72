package secrets

import (
	"fmt"
	"testing"
)

// TestAccessLogPagination checks newest-first ordering and page bounds.
func TestAccessLogPagination(t *testing.T) {
	log := newAccessLog(100)
	for i := 0; i < 25; i++ {
		log.append(fmt.Sprintf("secret-%d", i), AccessRead, Accessor{ID: "tester"}, true, "")
	}
	page := log.page(1, 10)
	if len(page) != 10 {
		t.Fatalf("page(1, 10) returned %d entries, want 10", len(page))
	}
	if page[0].SecretID != "secret-24" {
		t.Errorf("first entry = %s, want secret-24", page[0].SecretID)
	}
	last := log.page(3, 10)
	if len(last) != 5 {
		t.Fatalf("page(3, 10) returned %d entries, want 5", len(last))
	}
	if empty := log.page(4, 10); len(empty) != 0 {
		t.Fatalf("page(4, 10) returned %d entries, want 0", len(empty))
	}
}

// TestAccessLogHighWater checks that the log sheds its oldest half once it
// passes the high-water mark.
func TestAccessLogHighWater(t *testing.T) {
	log := newAccessLog(10)
	for i := 0; i < 11; i++ {
		log.append(fmt.Sprintf("secret-%d", i), AccessWrite, Accessor{ID: "tester"}, true, "")
	}
	if size := log.size(); size > 10 {
		t.Fatalf("size() = %d after trim, want <= 10", size)
	}
	newest := log.page(1, 1)
	if len(newest) != 1 || newest[0].SecretID != "secret-10" {
		t.Fatalf("newest entry lost after trim")
	}
}
