package monitor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopmate/sentinel/internal/metrics"
)

// blockEntry identifies one block of an IP. The entry pointer, not the
// timer, is the identity token handed to the unblock callback: it is fully
// constructed before the timer is armed, and the timer field itself is only
// touched under the monitor mutex.
type blockEntry struct {
	timer *time.Timer
}

// BlockIP adds the address to the blocked set and schedules an automatic
// unblock after duration (the configured default when duration <= 0).
// Re-blocking an already blocked IP replaces its pending timer, so a stale
// timer can never clear a newer block.
func (m *Monitor) BlockIP(ip string, duration time.Duration) {
	if ip == "" {
		return
	}
	if duration <= 0 {
		duration = m.cfg.DefaultBlockTTL
	}

	m.mu.Lock()
	if existing, ok := m.blockTimers[ip]; ok {
		existing.timer.Stop()
	} else {
		metrics.BlockedIPs.Inc()
	}
	entry := &blockEntry{}
	entry.timer = time.AfterFunc(duration, func() {
		m.autoUnblock(ip, entry)
	})
	m.blockTimers[ip] = entry
	m.mu.Unlock()

	m.topics.IPBlocked.Publish(ip)
	slog.Warn("IP address blocked", "ip", ip, "duration", duration)
}

// autoUnblock runs from the timer. The entry comparison drops stale
// timers that were replaced by a re-block after this one was scheduled.
func (m *Monitor) autoUnblock(ip string, self *blockEntry) {
	m.mu.Lock()
	current, ok := m.blockTimers[ip]
	if !ok || current != self {
		m.mu.Unlock()
		return
	}
	delete(m.blockTimers, ip)
	m.mu.Unlock()

	metrics.BlockedIPs.Dec()
	m.topics.IPUnblocked.Publish(ip)
	slog.Info("IP address unblocked", "ip", ip, "reason", "expired")
}

// UnblockIP removes a block before its timer fires, cancelling the pending
// auto-unblock. Reports whether the IP was blocked.
func (m *Monitor) UnblockIP(ip string) bool {
	m.mu.Lock()
	entry, ok := m.blockTimers[ip]
	if ok {
		entry.timer.Stop()
		delete(m.blockTimers, ip)
	}
	m.mu.Unlock()

	if ok {
		metrics.BlockedIPs.Dec()
		m.topics.IPUnblocked.Publish(ip)
		slog.Info("IP address unblocked", "ip", ip, "reason", "manual")
	}
	return ok
}

func (m *Monitor) IsIPBlocked(ip string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blockTimers[ip]
	return ok
}

// BlockedIPs returns the currently blocked addresses, sorted.
func (m *Monitor) BlockedIPs() []string {
	m.mu.Lock()
	ips := make([]string, 0, len(m.blockTimers))
	for ip := range m.blockTimers {
		ips = append(ips, ip)
	}
	m.mu.Unlock()
	sort.Strings(ips)
	return ips
}

// SetRateLimitOverride installs a multiplier on the IP's normal allowance.
func (m *Monitor) SetRateLimitOverride(ip string, multiplier float64) {
	if ip == "" || multiplier <= 0 {
		return
	}
	m.mu.Lock()
	m.rateOverrides[ip] = multiplier
	m.mu.Unlock()
	m.topics.RateLimitOverridden.Publish(RateOverride{IP: ip, Multiplier: multiplier})
}

// RateLimitOverride returns the multiplier for an IP, defaulting to 1.
func (m *Monitor) RateLimitOverride(ip string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if multiplier, ok := m.rateOverrides[ip]; ok {
		return multiplier
	}
	return 1
}

// ClearRateLimitOverride restores the IP's normal allowance.
func (m *Monitor) ClearRateLimitOverride(ip string) {
	m.mu.Lock()
	delete(m.rateOverrides, ip)
	m.mu.Unlock()
}
