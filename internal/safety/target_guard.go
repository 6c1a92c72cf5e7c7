// Package safety implements the pipeline that screens every candidate
// navigation target and every untrusted string fed to the AI backend:
// the Target Guard, Plan Sanitizer, and Prompt Defense of spec.md §4.4.
package safety

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// cloud metadata endpoints every cloud provider exposes on the
// link-local range; unconditional, never overridable by an allowlist.
var metadataHosts = []string{
	"169.254.169.254",
	"metadata.google.internal",
	"metadata.azure.com",
	"metadata",
}

var blockedTLDs = []string{".gov", ".mil", ".bank", ".internal", ".local"}

var blockedPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/(wp-admin|admin|administrator|phpmyadmin)(/|$)`),
	regexp.MustCompile(`(?i)/(login|auth|oauth|sso)(/|$)`),
	regexp.MustCompile(`(?i)\.(env|git|aws|ssh)(/|$)`),
	regexp.MustCompile(`(?i)phpinfo`),
	regexp.MustCompile(`(?i)server-status`),
}

// TargetGuardConfig controls which range checks are enforced.
type TargetGuardConfig struct {
	SSRFProtection         bool
	DNSRebindingProtection bool
	SelfTestEnabled        bool
	SelfDomain             string
	Allowlist              []string
	BlockedDomains         []string
	// Resolver is injected so tests can fake DNS resolution without a
	// real network lookup.
	Resolver func(ctx context.Context, host string) ([]net.IP, error)
}

// TargetGuard screens candidate navigation URLs for SSRF, DNS-rebinding,
// cloud-metadata, and self-protection violations.
type TargetGuard struct {
	cfg TargetGuardConfig
}

// NewTargetGuard builds a TargetGuard. A nil Resolver falls back to
// net.DefaultResolver.LookupIPAddr.
func NewTargetGuard(cfg TargetGuardConfig) *TargetGuard {
	if cfg.Resolver == nil {
		cfg.Resolver = func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, len(addrs))
			for i, a := range addrs {
				ips[i] = a.IP
			}
			return ips, nil
		}
	}
	return &TargetGuard{cfg: cfg}
}

// Check validates rawURL against every rule in spec.md §4.4(a), in the
// order the spec lists them — metadata and self-protection first and
// unconditionally, regardless of allowlist state.
func (g *TargetGuard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return NewTargetRejection(rawURL, "unparseable URL")
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return NewTargetRejection(rawURL, "missing host")
	}

	// Unconditional: no allowlist entry may override these two checks.
	if isMetadataHost(host) {
		return NewTargetRejection(rawURL, "cloud metadata endpoint")
	}
	if g.cfg.SelfDomain != "" && isSelfProtected(host, g.cfg.SelfDomain) {
		return NewTargetRejection(rawURL, "self-protection: target is this service")
	}

	if g.cfg.SelfTestEnabled {
		if !matchesAllowlist(host, g.cfg.Allowlist) {
			return NewTargetRejection(rawURL, "host not in self-test allowlist")
		}
		// Self-test mode trades range checks for an explicit allowlist;
		// metadata/self-protection above still applied.
		return g.checkPath(rawURL, u)
	}

	if g.cfg.SSRFProtection && isPrivateOrLoopback(host) {
		return NewTargetRejection(rawURL, "private or loopback address")
	}

	if g.cfg.DNSRebindingProtection {
		if err := g.checkResolvedAddresses(ctx, host); err != nil {
			return err
		}
	}

	if hasBlockedTLD(host) {
		return NewTargetRejection(rawURL, "blocked top-level domain")
	}
	if matchesAllowlist(host, g.cfg.BlockedDomains) {
		return NewTargetRejection(rawURL, "blocked domain")
	}

	return g.checkPath(rawURL, u)
}

func (g *TargetGuard) checkPath(rawURL string, u *url.URL) error {
	for _, pat := range blockedPathPatterns {
		if pat.MatchString(u.Path) {
			return NewTargetRejection(rawURL, "blocked path pattern")
		}
	}
	return nil
}

func (g *TargetGuard) checkResolvedAddresses(ctx context.Context, host string) error {
	if net.ParseIP(host) != nil {
		return nil // already an IP, range checks above already covered it
	}
	ips, err := g.cfg.Resolver(ctx, host)
	if err != nil {
		return nil // unresolvable: fail open on DNS errors, treat as navigation failure later
	}
	for _, ip := range ips {
		if isPrivateOrLoopbackIP(ip) || isMetadataIP(ip) {
			return NewTargetRejection(host, "DNS rebinding: resolved address is private or metadata range")
		}
	}
	return nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	host = strings.Trim(host, "[]")
	return host
}

func isMetadataHost(host string) bool {
	for _, m := range metadataHosts {
		if host == m {
			return true
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		return isMetadataIP(ip)
	}
	return false
}

func isMetadataIP(ip net.IP) bool {
	return ip.To4() != nil && ip.To4()[0] == 169 && ip.To4()[1] == 254
}

func isSelfProtected(host, selfDomain string) bool {
	selfDomain = strings.ToLower(strings.TrimPrefix(selfDomain, "www."))
	return host == selfDomain || strings.HasSuffix(host, "."+selfDomain)
}

func isPrivateOrLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return isPrivateOrLoopbackIP(ip)
	}
	lower := strings.ToLower(host)
	return lower == "localhost" || strings.HasSuffix(lower, ".localhost")
}

func isPrivateOrLoopbackIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	return ip.IsPrivate()
}

func hasBlockedTLD(host string) bool {
	for _, tld := range blockedTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

func matchesAllowlist(host string, list []string) bool {
	for _, entry := range list {
		entry = normalizeHost(entry)
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
