// Package quality contains checksum validators for the security and entity
// identifiers carried by the register. The validators are advisory: callers
// log failures and keep the reported value rather than dropping rows.
package quality

import "strings"

// ValidateISIN verifies the trailing check digit of a 12-character ISIN
// (ISO 6166) against its payload.
//
// The check is a Luhn variant over mixed alphanumeric input: letters expand
// to their two-digit values (A=10 .. Z=35), then every second digit of the
// expanded string is doubled, counting 1-based from the left and picking the
// odd positions when the expanded length is odd, the even positions
// otherwise. Doubling concatenates digits instead of carrying, so 8 doubles
// to the two digits 1 and 6. The digits are summed and the check digit must
// equal (10 - sum mod 10) mod 10.
//
// Returns false for anything that is not a well-formed 12-character
// identifier; it never panics on malformed input.
func ValidateISIN(isin string) bool {
	s := strings.ToUpper(strings.TrimSpace(isin))
	if len(s) != 12 {
		return false
	}
	last := s[11]
	if last < '0' || last > '9' {
		return false
	}
	check := int(last - '0')

	digits := make([]int, 0, 22)
	for i := 0; i < 11; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c >= 'A' && c <= 'Z':
			v := int(c) - 55
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}

	var odd, even []int
	for i, d := range digits {
		if i%2 == 0 { // 1-based odd position
			odd = append(odd, d)
		} else {
			even = append(even, d)
		}
	}
	if len(digits)%2 == 1 {
		odd = doubleDigits(odd)
	} else {
		even = doubleDigits(even)
	}

	sum := 0
	for _, d := range odd {
		sum += d
	}
	for _, d := range even {
		sum += d
	}
	return (10-sum%10)%10 == check
}

// doubleDigits doubles each digit and splits any two-digit result into its
// individual digits without carrying.
func doubleDigits(in []int) []int {
	out := make([]int, 0, len(in)*2)
	for _, d := range in {
		v := d * 2
		if v >= 10 {
			out = append(out, v/10, v%10)
		} else {
			out = append(out, v)
		}
	}
	return out
}

// ValidateLEI verifies a 20-character Legal Entity Identifier (ISO 17442)
// using the ISO 7064 mod 97-10 check: letters expand to two-digit values and
// the resulting number must be congruent to 1 modulo 97.
func ValidateLEI(lei string) bool {
	s := strings.ToUpper(strings.TrimSpace(lei))
	if len(s) != 20 {
		return false
	}
	rem := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c) - 55
			rem = (rem*10 + v/10) % 97
			rem = (rem*10 + v%10) % 97
		default:
			return false
		}
	}
	return rem == 1
}
