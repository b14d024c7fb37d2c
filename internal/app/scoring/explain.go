package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Audit Hash ─────────────────────────────────────────────────────────────

// ContentHash computes the deterministic SHA-256 digest of a snapshot's
// component values, weights, and total. The serialization is canonical:
// components in fixed order, floats formatted with shortest round-trip
// notation, no timestamps. Recomputing over unchanged data must reproduce
// the digest bit for bit, which is what makes recomputation idempotent and
// the snapshot externally verifiable.
func ContentHash(userID string, components map[domain.Component]domain.ComponentScore, total int, coldStart bool) string {
	var b strings.Builder
	b.WriteString("v1|")
	b.WriteString(userID)
	for _, c := range domain.Components() {
		cs := components[c]
		b.WriteByte('|')
		b.WriteString(string(c))
		b.WriteByte(':')
		b.WriteString(formatFloat(cs.Raw))
		b.WriteByte(',')
		b.WriteString(formatFloat(cs.Weight))
		b.WriteByte(',')
		b.WriteString(formatFloat(cs.Contribution))
	}
	b.WriteString("|total:")
	b.WriteString(strconv.Itoa(total))
	b.WriteString("|cold_start:")
	b.WriteString(strconv.FormatBool(coldStart))
	return domain.SHA256Hex([]byte(b.String()))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ─── Tier Labels ────────────────────────────────────────────────────────────

// TierLabel returns the qualitative tier for a score value.
func TierLabel(score float64) string {
	switch {
	case score >= 700:
		return "Excellent"
	case score >= 500:
		return "Good"
	case score >= 300:
		return "Building"
	default:
		return "New"
	}
}

// componentLabels maps component names to display labels.
var componentLabels = map[domain.Component]string{
	domain.ComponentRepayment:          "Repayment History",
	domain.ComponentTenure:             "Community Tenure",
	domain.ComponentVouchCount:         "Vouches Received",
	domain.ComponentVoucherReliability: "Voucher Reliability",
	domain.ComponentLoanVolume:         "Loan Volume",
}

// ─── Explanation ────────────────────────────────────────────────────────────

// Explain renders a human-readable breakdown: per component its label, raw
// value, weight, contribution, and qualitative tier, then the total.
func Explain(components map[domain.Component]domain.ComponentScore, total int, coldStart bool) string {
	if coldStart {
		return fmt.Sprintf(
			"New member building a credit profile. Starting score is %d; it grows with community participation, vouches, and on-time repayments.",
			total)
	}

	var b strings.Builder
	b.WriteString("Trust score breakdown:\n")
	for _, c := range domain.Components() {
		cs := components[c]
		fmt.Fprintf(&b, "- %s: %.0f/1000 (%s) × %.2f = %.1f points\n",
			componentLabels[c], cs.Raw, TierLabel(cs.Raw), cs.Weight, cs.Contribution)
	}
	fmt.Fprintf(&b, "Total: %d/1000 (%s)", total, TierLabel(float64(total)))
	return b.String()
}
