package entity

import (
	"encoding/json"
	"fmt"
)

// VerdictKind is the outcome class of one verification.
type VerdictKind int

const (
	VerdictInconclusive VerdictKind = iota
	VerdictMatched
	VerdictNotMatched
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictMatched:
		return "matched"
	case VerdictNotMatched:
		return "not_matched"
	default:
		return "inconclusive"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k VerdictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *VerdictKind) UnmarshalText(b []byte) error {
	v, err := ParseVerdictKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseVerdictKind is the inverse of VerdictKind.String.
func ParseVerdictKind(s string) (VerdictKind, error) {
	switch s {
	case "matched":
		return VerdictMatched, nil
	case "not_matched":
		return VerdictNotMatched, nil
	case "inconclusive":
		return VerdictInconclusive, nil
	}
	return VerdictInconclusive, fmt.Errorf("unknown verdict %q", s)
}

// Inconclusive reasons.
const (
	ReasonPageUnreachable     = "page unreachable"
	ReasonDateSelectionFailed = "date selection failed"
	ReasonTitleSearchFailed   = "title search failed"
	ReasonPaginationFailed    = "pagination failed"
	ReasonCancelled           = "cancelled"
	ReasonUnexpectedFailure   = "unexpected failure"
)

// Verdict is the final outcome for one VerificationRequest. The zero value
// is an Inconclusive verdict without a reason; use the constructors.
type Verdict struct {
	Kind VerdictKind `json:"kind"`
	// Reason explains an Inconclusive verdict.
	Reason string `json:"reason,omitempty"`
	// Pass names the matching pass that produced a Matched verdict.
	Pass string `json:"pass,omitempty"`
	// Page is the result page where the title matched, or the number of
	// pages scanned for NotMatched.
	Page int `json:"page,omitempty"`
	// Cached is set when the verdict came from the verdict memo.
	Cached bool `json:"cached,omitempty"`
}

// Matched builds a Matched verdict.
func Matched(pass string, page int) Verdict {
	return Verdict{Kind: VerdictMatched, Pass: pass, Page: page}
}

// NotMatched builds a NotMatched verdict after scanning pages result pages.
func NotMatched(pages int) Verdict {
	return Verdict{Kind: VerdictNotMatched, Page: pages}
}

// Inconclusive builds an Inconclusive verdict with a reason.
func Inconclusive(reason string) Verdict {
	return Verdict{Kind: VerdictInconclusive, Reason: reason}
}

// IsFinal reports whether the verdict is a definitive Matched or NotMatched.
func (v Verdict) IsFinal() bool {
	return v.Kind == VerdictMatched || v.Kind == VerdictNotMatched
}

func (v Verdict) String() string {
	switch v.Kind {
	case VerdictMatched:
		return fmt.Sprintf("matched (%s, page %d)", v.Pass, v.Page)
	case VerdictNotMatched:
		return fmt.Sprintf("not matched (%d pages)", v.Page)
	default:
		if v.Reason == "" {
			return "inconclusive"
		}
		return "inconclusive: " + v.Reason
	}
}

// EncodeVerdict serializes a verdict for caches.
func EncodeVerdict(v Verdict) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeVerdict is the inverse of EncodeVerdict.
func DecodeVerdict(b []byte) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal(b, &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}
