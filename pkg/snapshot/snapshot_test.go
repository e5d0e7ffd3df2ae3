package snapshot

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

func gen(name, doc string, ids ...string) *Generation {
	g := New(name, []byte(doc), ids, len(ids), 0)
	return &g
}

func runStoreTests(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		g, err := s.Latest(ctx, "none")
		if err != nil || g != nil {
			t.Fatalf("Latest() = %v, %v, want nil, nil", g, err)
		}
		if _, err := s.Get(ctx, "none", 1); !stderrors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		list, err := s.List(ctx, "none", 0)
		if err != nil || len(list) != 0 {
			t.Errorf("List() = %v, %v", list, err)
		}
	})

	t.Run("record sequence", func(t *testing.T) {
		for i, doc := range []string{"a", "b", "c"} {
			g := gen("prod", doc, "n1", "n2")
			if err := s.Record(ctx, g); err != nil {
				t.Fatalf("Record: %v", err)
			}
			if g.Seq != i+1 {
				t.Errorf("Seq = %d, want %d", g.Seq, i+1)
			}
			if g.ID == "" {
				t.Error("ID not assigned")
			}
		}
		latest, err := s.Latest(ctx, "prod")
		if err != nil || latest == nil || latest.Seq != 3 {
			t.Fatalf("Latest() = %+v, %v", latest, err)
		}
		if !slices.Equal(latest.CellIDs, []string{"n1", "n2"}) {
			t.Errorf("CellIDs = %v", latest.CellIDs)
		}

		got, err := s.Get(ctx, "prod", 2)
		if err != nil || got.Seq != 2 {
			t.Fatalf("Get() = %+v, %v", got, err)
		}
		if got.Digest != gen("prod", "b").Digest {
			t.Error("Get(2) should return the second document")
		}

		list, err := s.List(ctx, "prod", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].Seq != 3 || list[1].Seq != 2 {
			t.Errorf("List(2) seqs = %v, want [3 2]", seqs(list))
		}
	})

	t.Run("names are independent", func(t *testing.T) {
		g := gen("staging", "x", "n9")
		if err := s.Record(ctx, g); err != nil {
			t.Fatal(err)
		}
		if g.Seq != 1 {
			t.Errorf("Seq = %d, want 1", g.Seq)
		}
	})
}

func seqs(gens []Generation) []int {
	out := make([]int, len(gens))
	for i, g := range gens {
		out[i] = g.Seq
	}
	return out
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, s)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Record(context.Background(), gen("../evil", "x"))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Record() error = %v, want INVALID_INPUT", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestNewNormalizesCellIDs(t *testing.T) {
	g := New("d", []byte("doc"), []string{"b", "a", "b"}, 2, 1)
	if !slices.Equal(g.CellIDs, []string{"a", "b"}) {
		t.Errorf("CellIDs = %v", g.CellIDs)
	}
	if len(g.Digest) != 64 {
		t.Errorf("Digest = %q", g.Digest)
	}
}

func TestAssignDeterministic(t *testing.T) {
	a, b := gen("d", "doc"), gen("d", "doc")
	a.assign(4)
	b.assign(4)
	if a.ID != b.ID {
		t.Errorf("ids differ: %s vs %s", a.ID, b.ID)
	}
	b.assign(5)
	if a.ID == b.ID {
		t.Error("different seq should change the id")
	}
}

func TestCompare(t *testing.T) {
	prev := gen("d", "one", "a", "b", "c")
	prev.Seq = 1
	next := gen("d", "two", "b", "c", "d", "e")
	next.Seq = 2

	d := Compare(prev, next)
	if !slices.Equal(d.Added, []string{"d", "e"}) || !slices.Equal(d.Removed, []string{"a"}) {
		t.Errorf("Added = %v, Removed = %v", d.Added, d.Removed)
	}
	if d.Unchanged != 2 || !d.Changed || d.From != 1 || d.To != 2 {
		t.Errorf("diff = %+v", d)
	}
	if got, want := d.Summary(), "d: generation 2 vs 1: +2 -1 =2"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestCompareFirstAndIdentical(t *testing.T) {
	first := gen("d", "doc", "a", "b")
	first.Seq = 1
	d := Compare(nil, first)
	if len(d.Added) != 2 || d.From != 0 {
		t.Errorf("first diff = %+v", d)
	}
	if got := d.Summary(); got != "d: first generation, 2 cells" {
		t.Errorf("Summary() = %q", got)
	}

	again := gen("d", "doc", "a", "b")
	again.Seq = 2
	d = Compare(first, again)
	if d.Changed || len(d.Added)+len(d.Removed) != 0 || d.Unchanged != 2 {
		t.Errorf("identical diff = %+v", d)
	}
}

func TestRecordAndCompare(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := RecordAndCompare(ctx, s, gen("d", "1", "a")); err != nil {
		t.Fatal(err)
	}
	d, err := RecordAndCompare(ctx, s, gen("d", "2", "a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if d.From != 1 || d.To != 2 || !slices.Equal(d.Added, []string{"b"}) {
		t.Errorf("diff = %+v", d)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: dir, want: "file"},
		{dsn: "file://" + dir, want: "file"},
		{dsn: "sqlite://" + filepath.Join(dir, "h.db"), want: "sqlite"},
		{dsn: "postgres://localhost/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			s, err := Open(ctx, tt.dsn)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidConfig) {
					t.Errorf("Open() error = %v, want INVALID_CONFIG", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			var kind string
			switch s.(type) {
			case *FileStore:
				kind = "file"
			case *SQLiteStore:
				kind = "sqlite"
			}
			if kind != tt.want {
				t.Errorf("Open(%q) = %T", tt.dsn, s)
			}
		})
	}
}
