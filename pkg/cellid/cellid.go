// Package cellid maps cloud resource identifiers to short, stable cell ids.
//
// A cell id is a pure function of the canonical resource id, so regenerating a
// diagram from unchanged inventory yields the same ids and two generations can
// be diffed cell by cell.
//
// Three disjoint namespaces share one document:
//
//	n<hex>[_k]   resource cells        (CellID, Assigner)
//	x<kind>_<hex> synthetic cells      (SyntheticID)
//	e<hex>[_k]   connector cells       (EdgeID)
//
// Every id starts with a letter and continues with [0-9a-z_] only, which keeps
// it a valid XML name token.
package cellid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// ResourcePrefix starts every resource cell id.
	ResourcePrefix = "n"

	// SyntheticPrefix starts every container/title cell id that has no backing resource.
	SyntheticPrefix = "x"

	// EdgePrefix starts every connector cell id.
	EdgePrefix = "e"

	// HashLength is the number of hex characters kept from the digest (64 bits).
	HashLength = 16
)

// NormalizeID returns the canonical form of a resource id: trimmed and lower-cased.
func NormalizeID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CellID derives the base cell id for a canonical resource id.
// It does not detect collisions; use an [Assigner] for that.
func CellID(canonical string) string {
	return ResourcePrefix + digest(canonical)
}

// SyntheticID derives the id of a synthetic cell (title, cloud root, region or
// resource-group container). kind must be lower-case letters only.
func SyntheticID(kind, key string) string {
	if key == "" {
		return SyntheticPrefix + kind
	}
	return SyntheticPrefix + kind + "_" + digest(key)[:12]
}

// EdgeID derives the id of a connector between two cells.
func EdgeID(source, target, kind string) string {
	return EdgePrefix + digest(source+">"+target+">"+kind)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// IsToken reports whether id is a valid cell id token:
// a leading ASCII letter followed by letters, digits or underscores.
func IsToken(id string) bool {
	if id == "" {
		return false
	}
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_'):
		default:
			return false
		}
	}
	return true
}
