package headers

// Verdict is the three-tier Safe Meter label.
type Verdict string

const (
	VerdictSafe   Verdict = "✅ Safe – All checks passed"
	VerdictRisk   Verdict = "⚠️ Risk – Partial checks passed"
	VerdictUnsafe Verdict = "❌ Unsafe – Failed checks"
)

// Score combines the SPF, DKIM and DMARC statuses into a verdict.
//
// A single pass alongside a missing or "none" result counts as partial rather than
// failed: an absent result usually means the check was not attempted. Zero passes is
// always unsafe.
func Score(spf, dkim, dmarc string) Verdict {
	passes, unknowns := 0, 0
	for _, s := range [...]string{spf, dkim, dmarc} {
		switch s {
		case StatusPass:
			passes++
		case StatusNotFound, StatusNone:
			unknowns++
		}
	}

	switch {
	case passes == 3:
		return VerdictSafe
	case passes >= 2, passes >= 1 && unknowns > 0:
		return VerdictRisk
	default:
		return VerdictUnsafe
	}
}
