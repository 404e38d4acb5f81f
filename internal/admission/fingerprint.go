package admission

import (
	"fmt"
	"hash/fnv"
	"net"
)

// Fingerprint derives a stable device key from the client IP and user agent.
// It is a coarse grouping key for the device rate window, not an identity:
// collisions only make the shared limit slightly stricter.
func Fingerprint(remoteAddr, userAgent string) string {
	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		ip = host
	}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s", ip, userAgent)
	return fmt.Sprintf("%016x", h.Sum64())
}
