package headers

import (
	"regexp"
	"strings"
)

// Authentication status tokens and sentinels. Status values found in header text
// are reported lowercased as-is, so the set of possible values is open.
const (
	StatusPass         = "pass"
	StatusFail         = "fail"
	StatusNone         = "none"
	StatusNotFound     = "not found"
	StatusLookupFailed = "lookup failed"
	StatusUnknown      = "unknown"
)

var (
	spfRe         = regexp.MustCompile(`(?i)spf=(\w+)`)
	dkimRe        = regexp.MustCompile(`(?i)dkim=(\w+)`)
	dmarcRe       = regexp.MustCompile(`(?i)dmarc=(\w+)`)
	dmarcPolicyRe = regexp.MustCompile(`(?i)(?:^|[;\s])p\s*=\s*(none|quarantine|reject)`)
	angleAddrRe   = regexp.MustCompile(`<(.+)>`)
)

// SPFStatus returns the first spf= token anywhere in raw, lowercased.
func SPFStatus(raw string) string {
	return firstToken(spfRe, raw)
}

// DKIMStatus returns the first dkim= token anywhere in raw, lowercased.
func DKIMStatus(raw string) string {
	return firstToken(dkimRe, raw)
}

// InlineDMARCStatus returns the first dmarc= token anywhere in raw, lowercased.
func InlineDMARCStatus(raw string) string {
	return firstToken(dmarcRe, raw)
}

func firstToken(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return StatusNotFound
	}
	return strings.ToLower(m[1])
}

// SenderDomain extracts the domain of a From header value. The address inside
// angle brackets is preferred over the raw value. It returns "" when the value
// carries no usable domain.
func SenderDomain(from string) string {
	if from == "" || from == NotFound {
		return ""
	}
	addr := from
	if m := angleAddrRe.FindStringSubmatch(from); m != nil {
		addr = m[1]
	}
	_, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(domain, " \t>;,()@"); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimSuffix(strings.ToLower(domain), ".")
}

// ParseDMARCPolicy extracts the p= policy from concatenated DMARC TXT record text.
// A record without a recognizable policy yields StatusUnknown.
func ParseDMARCPolicy(record string) string {
	m := dmarcPolicyRe.FindStringSubmatch(record)
	if m == nil {
		return StatusUnknown
	}
	return strings.ToLower(m[1])
}
