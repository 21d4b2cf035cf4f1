package types

import "errors"

var (
	// ErrRateLimited is returned when the provider keeps rejecting requests after all retries.
	ErrRateLimited = errors.New("rate limited by odds provider")

	// ErrMalformedOdds marks a price string that cannot be read as American odds.
	ErrMalformedOdds = errors.New("malformed american odds")

	// ErrUnknownOddID marks an odd identifier that does not follow the five-part grammar.
	ErrUnknownOddID = errors.New("unrecognized odd id")

	// ErrInvalidLine marks a spread or total value that cannot be parsed.
	ErrInvalidLine = errors.New("invalid line value")
)
