package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Side
// -----------------------------------------------------------------------------

// Side is the direction of a position or a trade intent.
type Side int

const (
	SideLong Side = iota + 1
	SideShort
)

// ParseSide accepts the wire names used by clients and the stored contract.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return SideLong, nil
	case "sell", "short":
		return SideShort, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// String returns the stored representation ("buy" / "sell").
func (s Side) String() string {
	switch s {
	case SideLong:
		return "buy"
	case SideShort:
		return "sell"
	}
	return "unknown"
}

// Opposite returns the side that nets against s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

func (s Side) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid side %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// -----------------------------------------------------------------------------
// Market
// -----------------------------------------------------------------------------

type Market string

const (
	MarketCrypto Market = "crypto"
	MarketStocks Market = "stocks"
)

func ParseMarket(s string) (Market, error) {
	switch Market(strings.ToLower(strings.TrimSpace(s))) {
	case MarketCrypto:
		return MarketCrypto, nil
	case MarketStocks:
		return MarketStocks, nil
	}
	return "", fmt.Errorf("unknown market %q", s)
}
