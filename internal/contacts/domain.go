package contacts

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidDomain reports a company identifier that does not contain a usable hostname.
var ErrInvalidDomain = errors.New("invalid company domain")

// NormalizeDomain reduces a user-supplied company identifier (a URL or a bare
// host) to a lower-case hostname without scheme, port, path or "www." prefix.
func NormalizeDomain(identifier string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(identifier))
	if raw == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidDomain)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(u.Hostname(), "www."), ".")
	if host == "" || !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, identifier)
	}
	return host, nil
}

// RegistrableDomain returns the eTLD+1 for host ("careers.example.co.uk" becomes
// "example.co.uk"). Hosts the public suffix list cannot reduce are returned as-is.
func RegistrableDomain(host string) string {
	reg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return reg
}
