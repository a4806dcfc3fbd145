package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/topology"
)

func openStores(t *testing.T) map[string]SessionStore {
	t.Helper()
	ctx := context.Background()

	sqlite, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "nested", "supplyshock.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	stores := map[string]SessionStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

// appliedRecord returns the record of a session that has processed one
// event with the offline reasoner.
func appliedRecord(t *testing.T, id string, at time.Time) session.Record {
	t.Helper()
	s := session.New(reasoning.NewAnalyzer(reasoning.NewRulesClient()),
		session.WithID(id), session.WithClock(func() time.Time { return at }))
	if _, err := s.ProcessNextEvent(context.Background()); err != nil {
		t.Fatalf("ProcessNextEvent: %v", err)
	}
	return s.Record()
}

func TestSaveLoad(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := appliedRecord(t, "s-1", at)

	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.Save(ctx, rec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := st.Load(ctx, "s-1")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff(rec, got); diff != "" {
				t.Errorf("loaded record mismatch (-want +got):\n%s", diff)
			}

			// The loaded record restores into an equivalent session.
			s, err := session.Restore(got, nil)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if s.KPIs() != rec.KPIs || s.State() != session.StateEventApplied {
				t.Errorf("restored kpis = %+v state = %s", s.KPIs(), s.State())
			}
		})
	}
}

func TestSaveReplaces(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := appliedRecord(t, "s-1", at)
			if err := st.Save(ctx, first); err != nil {
				t.Fatal(err)
			}

			s, err := session.Restore(first, nil)
			if err != nil {
				t.Fatal(err)
			}
			s.Reset()
			if err := st.Save(ctx, s.Record()); err != nil {
				t.Fatal(err)
			}

			got, err := st.Load(ctx, "s-1")
			if err != nil {
				t.Fatal(err)
			}
			if got.State != session.StateIdle || got.Event != nil {
				t.Errorf("expected replaced idle record, got state %s", got.State)
			}
			list, err := st.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 1 {
				t.Errorf("List() returned %d sessions, want 1", len(list))
			}
		})
	}
}

func TestList(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, id := range []string{"old", "new", "mid"} {
				offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
				rec := appliedRecord(t, id, base.Add(offset))
				if i == 0 {
					rec.KPIs = kpi.Set{ServiceLevel: 50}
				}
				if err := st.Save(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			list, err := st.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var ids []string
			for _, s := range list {
				ids = append(ids, s.ID)
			}
			if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
				t.Errorf("order (-want +got):\n%s", diff)
			}
			last := list[len(list)-1]
			if last.KPIs.ServiceLevel != 50 || !last.UpdatedAt.Equal(base) || last.NextSeed != 2 {
				t.Errorf("summary = %+v", last)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() error = %v, want ErrNotFound", err)
			}
			if err := st.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := session.New(nil, session.WithID("gone")).Record()
			if err := st.Save(ctx, rec); err != nil {
				t.Fatal(err)
			}
			if err := st.Delete(ctx, "gone"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := st.Load(ctx, "gone"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() after delete error = %v", err)
			}
		})
	}
}

func TestSave_RequiresID(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Save(context.Background(), session.Record{}); err == nil {
				t.Error("expected error for empty id")
			}
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "supplyshock.db")

	st, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	custom := topology.Baseline()
	custom.Edges[0].LeadTimeDays = 30
	rec := session.New(nil, session.WithID("keep"), session.WithBaseline(custom)).Record()
	if err := st.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	st.Close()

	// The schema already exists; reopening runs the integrity check path.
	st, err = NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if st.Path() != path {
		t.Errorf("Path() = %q", st.Path())
	}

	got, err := st.Load(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if got.Baseline.Edges[0].LeadTimeDays != 30 {
		t.Errorf("baseline not preserved: lead time %d", got.Baseline.Edges[0].LeadTimeDays)
	}
}

func TestCodec(t *testing.T) {
	rec := session.New(nil, session.WithID("c")).Record()
	ev := events.GenerateAt(7, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Event = &ev

	payload, err := encodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeRecord(payload)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("codec mismatch (-want +got):\n%s", diff)
	}

	if _, err := decodeRecord([]byte("not snappy")); err == nil {
		t.Error("expected error for corrupt payload")
	}
}

func TestDialectRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got, want := postgresDialect.rebind(q), `SELECT a FROM t WHERE x = $1 AND y = $2`; got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, DriverMemory, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*MemoryStore); !ok {
		t.Errorf("memory driver returned %T", st)
	}

	st, err = Open(ctx, "", filepath.Join(t.TempDir(), "db.sqlite"), "")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok := st.(*SQLiteStore); !ok {
		t.Errorf("default driver returned %T", st)
	}

	if _, err := Open(ctx, "redis", "", ""); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(ctx, DriverPostgres, "", ""); err == nil {
		t.Error("expected error for postgres without dsn")
	}
	if _, err := Open(ctx, DriverSQLite, "", ""); err == nil {
		t.Error("expected error for sqlite without path")
	}
}

func TestNewPostgresStore_OpenError(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Errorf("driver = %q, want pgx", driver)
		}
		return nil, errors.New("boom")
	}
	defer func() { sqlOpen = orig }()

	if _, err := NewPostgresStore(context.Background(), "postgres://localhost/x"); err == nil {
		t.Error("expected error when open fails")
	}
}
