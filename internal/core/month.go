package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Month is the one-based calendar month. All period arithmetic runs on the
// ordinal; the French name exists for display and lenient parsing only.
type Month int

const (
	Janvier Month = iota + 1
	Fevrier
	Mars
	Avril
	Mai
	Juin
	Juillet
	Aout
	Septembre
	Octobre
	Novembre
	Decembre
)

var monthNames = [12]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// Months returns the twelve months in fixed calendar order.
func Months() []Month {
	ms := make([]Month, 12)
	for i := range ms {
		ms[i] = Month(i + 1)
	}
	return ms
}

func (m Month) Valid() bool {
	return m >= Janvier && m <= Decembre
}

// Name returns the display name, e.g. "Février". Invalid months have none.
func (m Month) Name() string {
	if !m.Valid() {
		return ""
	}
	return monthNames[m-1]
}

func (m Month) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return m.Name()
}

// ParseMonth accepts an ordinal ("1".."12") or a French month name. Name
// matching ignores case, surrounding whitespace and diacritics, so "fevrier"
// and "FÉVRIER" both parse to Février.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse month: empty input")
	}

	if n, err := strconv.Atoi(s); err == nil {
		m := Month(n)
		if !m.Valid() {
			return 0, fmt.Errorf("parse month: ordinal %d out of range", n)
		}
		return m, nil
	}

	folded := foldMonthName(s)
	for i, name := range monthNames {
		if foldMonthName(name) == folded {
			return Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("parse month: unknown month %q", s)
}

// foldMonthName lowercases and strips combining marks so accented and plain
// spellings compare equal.
func foldMonthName(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
