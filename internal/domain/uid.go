// Package domain uid.go contains the public uid format: a literal tag followed
// by a zero-padded decimal index of fixed width.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDigits bounds the digit width so that the ID space (10^digits) stays addressable
// by an int on every platform and the bitmap fits in memory.
const MaxDigits = 9

// UIDFormat describes how indexes of an ID space are rendered as public identifiers.
type UIDFormat struct {
	Tag    string
	Digits int
}

// NewUIDFormat validates digits and returns the format.
func NewUIDFormat(tag string, digits int) (UIDFormat, error) {
	if digits < 1 || digits > MaxDigits {
		return UIDFormat{}, fmt.Errorf("digits must be within [1,%d], got %d", MaxDigits, digits)
	}
	return UIDFormat{Tag: tag, Digits: digits}, nil
}

// Capacity returns 10^Digits, the number of addressable slots.
func (f UIDFormat) Capacity() int {
	c := 1
	for i := 0; i < f.Digits; i++ {
		c *= 10
	}
	return c
}

// Format renders index as Tag followed by the zero-padded decimal index.
func (f UIDFormat) Format(index int) string {
	return fmt.Sprintf("%s%0*d", f.Tag, f.Digits, index)
}

// Parse strips the tag and returns the numeric index. The suffix must be exactly
// Digits decimal digits; anything else yields ErrMalformedUID.
func (f UIDFormat) Parse(uid string) (int, error) {
	if !strings.HasPrefix(uid, f.Tag) {
		return 0, fmt.Errorf("%w: %q lacks tag %q", ErrMalformedUID, uid, f.Tag)
	}
	suffix := uid[len(f.Tag):]
	if len(suffix) != f.Digits {
		return 0, fmt.Errorf("%w: %q suffix must have %d digits", ErrMalformedUID, uid, f.Digits)
	}
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return 0, fmt.Errorf("%w: %q suffix is not decimal", ErrMalformedUID, uid)
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedUID, uid, err)
	}
	return n, nil
}

// ParseAll converts every uid to its index, failing on the first malformed entry.
func (f UIDFormat) ParseAll(uids []string) ([]int, error) {
	out := make([]int, 0, len(uids))
	for _, u := range uids {
		n, err := f.Parse(u)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
