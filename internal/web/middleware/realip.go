package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// TrustedRealIP rewrites RemoteAddr from X-Real-IP or X-Forwarded-For, but
// only for requests arriving from a trusted proxy. The resolved client IP is
// also stored in the request context for the action history.
//
// Headers from untrusted peers are ignored so clients cannot spoof their
// address to dodge the rate limiter.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trustedNets := parseTrusted(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isTrusted(extractIP(r.RemoteAddr), trustedNets) {
				if ip := forwardedIP(r); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}

			ctx := core.ContextWithClientIP(r.Context(), ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the client address of r without the port.
func ClientIP(r *http.Request) string {
	if ip := extractIP(r.RemoteAddr); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

// parseTrusted parses CIDRs and bare IPs; invalid entries are logged and skipped.
func parseTrusted(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(cidr)
		if ip == nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "cidr", cidr)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip, bits = ip.To4(), 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// forwardedIP returns the original client from proxy headers. X-Real-IP wins;
// otherwise the first X-Forwarded-For entry is used.
func forwardedIP(r *http.Request) net.IP {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return net.ParseIP(rip)
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return nil
	}
	first, _, _ := strings.Cut(xff, ",")
	return net.ParseIP(strings.TrimSpace(first))
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
