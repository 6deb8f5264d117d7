package address

import (
	"strings"
)

// matcher tries one family. committed reports that the input structurally
// belongs to the family; a committed matcher's error is final and stops the
// search.
type matcher func(s string) (d *Decoded, committed bool, err error)

// matchers lists the families in the order they must be tried.
var matchers = []matcher{
	matchRaw,
	matchBech32,
	matchBase58Check,
	matchBounceable,
	matchSS58,
}

// Match determines the family of an address string and decodes it.
//
// The order is significant: raw hex, Bitcoin bech32 (committed by its
// prefix), Bitcoin base58check (committed by its decoded length), bounceable,
// then SS58. Returns ErrInvalidAddress when no family accepts the input.
func Match(s string) (*Decoded, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAddress
	}
	for _, m := range matchers {
		d, committed, err := m(s)
		if err != nil {
			return nil, err
		}
		if committed {
			return d, nil
		}
	}
	return nil, ErrInvalidAddress
}
