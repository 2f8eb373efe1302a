// Package normalize canonicalizes contact and company fields so records from
// different environments can be compared. Every function is total and
// idempotent: blank input yields "".
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCountryCode is the dialing code applied to national numbers
// written with a leading trunk zero.
const DefaultCountryCode = "33"

// Phone normalizes a phone number using DefaultCountryCode.
func Phone(s string) string {
	return PhoneWithCountry(s, DefaultCountryCode)
}

// PhoneWithCountry keeps digits and a "+" seen before the first digit. An international "00"
// prefix becomes "+", and a single national trunk "0" becomes "+<cc>".
// Input without any digit normalizes to "".
func PhoneWithCountry(s, countryCode string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	plus := false
	for _, r := range s {
		switch {
		case r == '+' && b.Len() == 0:
			plus = true
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if plus {
		return "+" + digits
	}

	cc := strings.TrimLeft(strings.TrimSpace(countryCode), "+")
	switch {
	case strings.HasPrefix(digits, "00"):
		if rest := strings.TrimPrefix(digits, "00"); rest != "" {
			return "+" + rest
		}
		return ""
	case len(digits) > 1 && digits[0] == '0' && cc != "":
		return "+" + cc + digits[1:]
	default:
		return digits
	}
}

// Name trims, lower-cases, strips diacritics and collapses whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(StripDiacritics(s))), " ")
}

// Email trims and lower-cases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// legalTokens are entity-form words dropped from the end of a company name.
var legalTokens = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "llp": true, "lp": true, "pllc": true,
	"ltd": true, "limited": true, "corp": true, "corporation": true, "co": true, "company": true,
	"plc": true, "pc": true, "gmbh": true, "ag": true, "kg": true, "bv": true, "nv": true,
	"sa": true, "sas": true, "sasu": true, "sarl": true, "eurl": true, "sci": true, "snc": true, "sca": true,
	"srl": true, "spa": true,
}

// CompanyName lower-cases, strips diacritics and punctuation, then drops
// trailing legal-form tokens while at least one other token remains, so
// "Acme S.A.R.L." and "ACME" compare equal but "SA" stays "sa".
func CompanyName(s string) string {
	s = strings.ToLower(StripDiacritics(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '\'' || r == '’':
			// dropped so "l.l.c." and "o'neil" fuse
		case r == '&':
			b.WriteString(" and ")
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 1 && legalTokens[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// StripDiacritics removes combining marks: "Éloïse" becomes "Eloise".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
