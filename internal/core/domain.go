package core

import "unicode/utf8"

// Text bounds shared by the alert, penalty and appeal records. Lengths are
// counted in characters, not bytes.
const (
	MaxActivityLen        = 500
	MaxAlertEvidenceLen   = 1000
	MaxPenaltyReasonLen   = 500
	MaxPenaltyEvidenceLen = 1000
	MaxAppealReasonLen    = 1000
	MaxAppealEvidenceLen  = 2000
	MaxResolutionLen      = 1000
)

// CheckLen fails when s is longer than max characters.
func CheckLen(op, field, s string, max int) error {
	if n := utf8.RuneCountInString(s); n > max {
		return Preconditionf(op, field, "length %d exceeds %d", n, max)
	}
	return nil
}
