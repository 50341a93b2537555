package merge

import (
	"strings"

	"github.com/fmillerrzero/odcv-app/internal/source"
)

// MatchKind is how a FlagRule compares audit text.
type MatchKind string

const (
	MatchContains MatchKind = "contains"
	MatchExact    MatchKind = "exact"
)

// System flag names.
const (
	FlagVAV = "has_vav"
	FlagDCV = "has_dcv"
	FlagBMS = "has_bms"
)

// FlagRule derives one boolean system flag from a free-text audit field.
// Absent text never matches.
type FlagRule struct {
	Flag   string
	Column string
	Match  MatchKind
	Value  string
	text   func(source.AuditRow) *string
}

// SystemFlagRules is the complete mapping from audit text to system flags.
var SystemFlagRules = []FlagRule{
	{
		Flag: FlagVAV, Column: source.AuditColDistribution, Match: MatchContains, Value: "Variable Air Volume",
		text: func(r source.AuditRow) *string { return r.DistributionType },
	},
	{
		Flag: FlagDCV, Column: source.AuditColDCV, Match: MatchExact, Value: "Yes",
		text: func(r source.AuditRow) *string { return r.DCVText },
	},
	{
		Flag: FlagBMS, Column: source.AuditColBMS, Match: MatchExact, Value: "Yes",
		text: func(r source.AuditRow) *string { return r.BMSText },
	},
}

// Matches applies the rule to s.
func (r FlagRule) Matches(s *string) bool {
	if s == nil {
		return false
	}
	switch r.Match {
	case MatchContains:
		return strings.Contains(*s, r.Value)
	case MatchExact:
		return *s == r.Value
	default:
		return false
	}
}

// Evaluate applies the rule to an audit row.
func (r FlagRule) Evaluate(row source.AuditRow) bool {
	return r.Matches(r.text(row))
}

// deriveFlags evaluates every rule against the row.
func deriveFlags(row source.AuditRow, rules []FlagRule) map[string]bool {
	out := make(map[string]bool, len(rules))
	for _, r := range rules {
		out[r.Flag] = r.Evaluate(row)
	}
	return out
}
