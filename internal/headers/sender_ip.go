package headers

import (
	"net/netip"
	"regexp"
	"strings"
)

var (
	bracketedIPRe = regexp.MustCompile(`\[(\d{1,3}(?:\.\d{1,3}){3})\]`)
	bareIPRe      = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
)

// SenderIP is the originating address found in the Received trace.
type SenderIP struct {
	Addr    string
	Private bool
}

// Found reports whether any address was located.
func (s SenderIP) Found() bool {
	return s.Addr != ""
}

// String returns the dotted quad or NotFound.
func (s SenderIP) String() string {
	if s.Addr == "" {
		return NotFound
	}
	return s.Addr
}

// LocateSenderIP scans the Received lines of raw from the bottom up, since each relay
// prepends its own line and the last one is the earliest hop. Within a line a
// bracketed literal is preferred over a bare dotted quad.
//
// With preferPublic set, private and loopback addresses are skipped in favour of the
// first public one; when only private addresses exist the first of them is returned
// with Private set. Without it the first address found wins.
func LocateSenderIP(raw string, preferPublic bool) SenderIP {
	var received []string
	for line := range Lines(raw) {
		if len(line) >= len("Received:") && strings.EqualFold(line[:len("Received:")], "Received:") {
			received = append(received, line)
		}
	}

	var fallback SenderIP
	for i := len(received) - 1; i >= 0; i-- {
		addr, ok := ipInLine(received[i])
		if !ok {
			continue
		}
		private := IsPrivate(addr)
		if !preferPublic || !private {
			return SenderIP{Addr: addr.String(), Private: private}
		}
		if !fallback.Found() {
			fallback = SenderIP{Addr: addr.String(), Private: true}
		}
	}
	return fallback
}

func ipInLine(line string) (netip.Addr, bool) {
	for _, m := range bracketedIPRe.FindAllStringSubmatch(line, -1) {
		if addr, err := netip.ParseAddr(m[1]); err == nil {
			return addr, true
		}
	}
	for _, m := range bareIPRe.FindAllString(line, -1) {
		if addr, err := netip.ParseAddr(m); err == nil {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// IsPrivate reports whether addr is in a private, loopback, link-local or unspecified range.
func IsPrivate(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
