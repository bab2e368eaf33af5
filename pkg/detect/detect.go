// Package detect finds sensitive data patterns in text content.
//
// Each pattern kind yields at most maxPerKind findings with masked match
// text, surrounding context, and the byte offset of the match. Credit card
// candidates are additionally validated with the Luhn checksum.
package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxPerKind   = 10
	contextChars = 50
)

// Kind identifies a detection pattern.
type Kind string

const (
	KindSSN        Kind = "ssn"
	KindCreditCard Kind = "credit_card"
	KindAWSKey     Kind = "aws_key"
	KindAWSSecret  Kind = "aws_secret"
	KindEmail      Kind = "email"
	KindPhoneUS    Kind = "phone_us"
)

// Finding is a single masked detection result.
type Finding struct {
	Detector    string
	MaskedMatch string
	Context     string
	ByteOffset  int64
}

type pattern struct {
	kind Kind
	re   *regexp.Regexp
}

// Detector scans content against an ordered set of patterns. Findings for
// kind A always precede findings for kind B when A is registered first, so
// results are deterministic for a given input.
type Detector struct {
	patterns []pattern
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// New returns a detector with the default pattern set.
func New() *Detector {
	return &Detector{
		patterns: []pattern{
			{KindSSN, regexp.MustCompile(`(?im)\b\d{3}-\d{2}-\d{4}\b`)},
			{KindCreditCard, regexp.MustCompile(`(?im)\b(?:\d[ -]*?){13,16}\b`)},
			{KindAWSKey, regexp.MustCompile(`(?im)AKIA[0-9A-Z]{16}`)},
			{KindAWSSecret, regexp.MustCompile(`(?im)aws_secret_access_key\s*=\s*['"]?([A-Za-z0-9/+=]{40})['"]?`)},
			{KindEmail, regexp.MustCompile(`(?im)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
			{KindPhoneUS, regexp.MustCompile(`(?im)\(?\d{3}\)?[ -]?\d{3}[ -]?\d{4}`)},
		},
	}
}

// Detect scans content with the default per-kind cap (10) and context
// window (50 bytes each side).
func (d *Detector) Detect(content string) []Finding {
	return d.DetectN(content, maxPerKind, contextChars)
}

// DetectN scans content and returns at most maxPerKind findings per pattern
// kind with contextChars bytes of context each side. Offsets and context
// boundaries are byte positions.
func (d *Detector) DetectN(content string, maxPerKind, contextChars int) []Finding {
	var findings []Finding

	for _, p := range d.patterns {
		locs := p.re.FindAllStringIndex(content, -1)
		count := 0

		for _, loc := range locs {
			if count >= maxPerKind {
				break
			}

			matched := content[loc[0]:loc[1]]

			if p.kind == KindCreditCard {
				digits := nonDigits.ReplaceAllString(matched, "")
				if len(digits) < 13 || len(digits) > 16 {
					continue
				}
				if !Luhn(digits) {
					continue
				}
			}

			start := max(0, loc[0]-contextChars)
			end := min(len(content), loc[1]+contextChars)

			findings = append(findings, Finding{
				Detector:    string(p.kind),
				MaskedMatch: mask(p.kind, matched),
				Context:     content[start:end],
				ByteOffset:  int64(loc[0]),
			})
			count++
		}
	}

	return findings
}

// mask redacts the matched text, keeping just enough to identify the hit.
func mask(kind Kind, matched string) string {
	switch kind {
	case KindSSN:
		if len(matched) >= 4 {
			return "XXX-XX-" + matched[len(matched)-4:]
		}
		return "XXX-XX-XXXX"
	case KindCreditCard:
		if len(matched) >= 4 {
			return "****-****-****-" + matched[len(matched)-4:]
		}
		return "****-****-****-****"
	case KindAWSKey:
		if len(matched) > 8 {
			return matched[:4] + "..." + matched[len(matched)-4:]
		}
		return "AKIA****"
	default:
		return "***MASKED***"
	}
}

// Luhn reports whether digits passes the Luhn checksum. The input must be
// a string of ASCII digits at least 13 long.
func Luhn(digits string) bool {
	if len(digits) < 13 {
		return false
	}

	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	return sum%10 == 0
}

// DecodeText converts raw object bytes to a string. Valid UTF-8 passes
// through unchanged; anything else is decoded as Latin-1 so arbitrary
// binary content still yields a scannable string.
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String(), nil
}
