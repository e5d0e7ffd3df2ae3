package cellid

import (
	"slices"
	"strconv"
)

// Assigner hands out collision-free cell ids.
//
// The base id of a canonical id is CellID(canonical). When two different
// canonical ids share a base id the one that sorts later receives a numeric
// suffix ("_2", "_3", ...). Assigning through [Assigner.AssignAll] makes the
// result independent of input order.
//
// An Assigner is not safe for concurrent use.
type Assigner struct {
	hash   func(string) string
	ids    map[string]string // canonical -> cell id
	owners map[string]string // cell id -> canonical
	hits   int
}

// Option configures an [Assigner].
type Option func(*Assigner)

// WithHash replaces the base id function. Tests use it to force collisions.
func WithHash(fn func(canonical string) string) Option {
	return func(a *Assigner) { a.hash = fn }
}

// NewAssigner creates an empty assigner.
func NewAssigner(opts ...Option) *Assigner {
	a := &Assigner{
		hash:   CellID,
		ids:    make(map[string]string),
		owners: make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssignAll normalizes and assigns every id in sorted canonical order.
func (a *Assigner) AssignAll(rawIDs []string) {
	canon := make([]string, 0, len(rawIDs))
	for _, id := range rawIDs {
		canon = append(canon, NormalizeID(id))
	}
	slices.Sort(canon)
	for _, id := range slices.Compact(canon) {
		a.Assign(id)
	}
}

// Assign returns the cell id for raw, allocating one on first use.
func (a *Assigner) Assign(raw string) string {
	canonical := NormalizeID(raw)
	if id, ok := a.ids[canonical]; ok {
		return id
	}

	base := a.hash(canonical)
	id := base
	for n := 2; ; n++ {
		owner, taken := a.owners[id]
		if !taken || owner == canonical {
			break
		}
		a.hits++
		id = base + "_" + strconv.Itoa(n)
	}

	a.ids[canonical] = id
	a.owners[id] = canonical
	return id
}

// Lookup returns the id previously assigned to raw.
func (a *Assigner) Lookup(raw string) (string, bool) {
	id, ok := a.ids[NormalizeID(raw)]
	return id, ok
}

// Collisions returns how many suffix steps were needed so far.
func (a *Assigner) Collisions() int {
	return a.hits
}

// Len returns the number of assigned ids.
func (a *Assigner) Len() int {
	return len(a.ids)
}

// IDs returns all assigned cell ids in sorted order.
func (a *Assigner) IDs() []string {
	out := make([]string, 0, len(a.owners))
	for id := range a.owners {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
