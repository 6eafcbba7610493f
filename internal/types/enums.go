package types

import "strings"

// Trade status values as stored in the ledger.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// DefaultBot is the bot identity assumed for rows written before the
// bot_name column existed.
const DefaultBot = "main"

// Side is the normalized direction of a trade. The ledger stores a mix of
// spellings ("long"/"buy", "short"/"sell") depending on which bot wrote the
// row; normalization happens once at the read boundary.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// NormalizeSide maps a stored side string onto the closed Side enum.
// It returns false for blank or unrecognized values; callers skip such rows.
func NormalizeSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	}
	return "", false
}

// NormalizeBot lowercases a stored bot name and substitutes DefaultBot for
// blank values.
func NormalizeBot(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultBot
	}
	return name
}
