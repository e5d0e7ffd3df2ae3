// Package snapshot records generations of named diagrams and reports what
// changed between them.
//
// A generation is the sorted set of vertex cell ids of one rendered
// document plus a digest of its bytes. Because cell ids are derived from
// resource ids, comparing two generations tells which resources appeared
// or disappeared between runs without parsing either document again.
//
// Three stores are provided:
//   - FileStore: one JSON file per diagram under a directory (CLI default)
//   - SQLiteStore: a single database file, safe for several processes
//   - MongoStore: a shared collection for server deployments
//
// [Open] selects one from a DSN.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	azerrors "github.com/matzehuels/azdiagram/pkg/errors"
)

// ErrNotFound is returned when a generation does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 20

// Generation is one recorded rendering of a diagram.
type Generation struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Seq       int       `json:"seq" bson:"seq"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Digest    string    `json:"digest" bson:"digest"`
	CellIDs   []string  `json:"cell_ids" bson:"cell_ids"`
	Nodes     int       `json:"nodes" bson:"nodes"`
	Edges     int       `json:"edges" bson:"edges"`
}

// New builds an unrecorded generation. Cell ids are sorted and
// deduplicated; the digest covers doc.
func New(name string, doc []byte, cellIDs []string, nodes, edges int) Generation {
	ids := slices.Clone(cellIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	sum := sha256.Sum256(doc)
	return Generation{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Digest:    hex.EncodeToString(sum[:]),
		CellIDs:   ids,
		Nodes:     nodes,
		Edges:     edges,
	}
}

// assign fills in the sequence number and the derived id.
func (g *Generation) assign(seq int) {
	g.Seq = seq
	g.ID = uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s\x00%d\x00%s", g.Name, seq, g.Digest)).String()
}

// Store persists generations. Implementations are safe for concurrent use.
type Store interface {
	// Record assigns the next sequence number for g.Name and stores g.
	Record(ctx context.Context, g *Generation) error
	// Latest returns the newest generation, or nil, nil when none exists.
	Latest(ctx context.Context, name string) (*Generation, error)
	// Get returns one generation or ErrNotFound.
	Get(ctx context.Context, name string, seq int) (*Generation, error)
	// List returns up to limit generations, newest first.
	List(ctx context.Context, name string, limit int) ([]Generation, error)
	Close() error
}

// Diff is the change between two generations.
type Diff struct {
	Name      string   `json:"name"`
	From      int      `json:"from"`
	To        int      `json:"to"`
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Unchanged int      `json:"unchanged"`
	// Changed is false when both documents are byte-identical.
	Changed bool `json:"changed"`
}

// Compare diffs next against prev. A nil prev treats every cell of next as
// added.
func Compare(prev, next *Generation) Diff {
	d := Diff{Name: next.Name, To: next.Seq, Changed: true}
	if prev == nil {
		d.Added = slices.Clone(next.CellIDs)
		return d
	}
	d.From = prev.Seq
	d.Changed = prev.Digest != next.Digest

	i, j := 0, 0
	for i < len(prev.CellIDs) && j < len(next.CellIDs) {
		switch a, b := prev.CellIDs[i], next.CellIDs[j]; {
		case a == b:
			d.Unchanged++
			i++
			j++
		case a < b:
			d.Removed = append(d.Removed, a)
			i++
		default:
			d.Added = append(d.Added, b)
			j++
		}
	}
	d.Removed = append(d.Removed, prev.CellIDs[i:]...)
	d.Added = append(d.Added, next.CellIDs[j:]...)
	return d
}

// Summary renders the diff as a one-line description.
func (d Diff) Summary() string {
	switch {
	case d.From == 0:
		return fmt.Sprintf("%s: first generation, %d cells", d.Name, len(d.Added))
	case !d.Changed:
		return fmt.Sprintf("%s: generation %d unchanged from %d", d.Name, d.To, d.From)
	}
	return fmt.Sprintf("%s: generation %d vs %d: +%d -%d =%d", d.Name, d.To, d.From, len(d.Added), len(d.Removed), d.Unchanged)
}

// RecordAndCompare records g and diffs it against the previous generation.
func RecordAndCompare(ctx context.Context, s Store, g *Generation) (Diff, error) {
	prev, err := s.Latest(ctx, g.Name)
	if err != nil {
		return Diff{}, err
	}
	if err := s.Record(ctx, g); err != nil {
		return Diff{}, err
	}
	return Compare(prev, g), nil
}

// Open selects a store from dsn:
//
//	""                    FileStore in the default directory
//	"file:///dir", "dir"  FileStore in dir
//	"sqlite://path"       SQLiteStore
//	"mongodb://..."       MongoStore (also "mongodb+srv://")
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		s, err := NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		s, err := NewMongoStore(ctx, dsn, "")
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file://"):
		return nil, azerrors.New(azerrors.ErrCodeInvalidConfig, "unsupported history dsn %q", dsn)
	}
	s, err := NewFileStore(strings.TrimPrefix(dsn, "file://"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
