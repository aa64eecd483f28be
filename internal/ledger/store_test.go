package ledger

import (
	"testing"
	"time"

	"github.com/hornetlabs/hornet/internal/unit"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func unitRun(runID, name string, status unit.RunStatus) unit.UnitRun {
	return unit.UnitRun{
		RunID:      runID,
		UnitName:   name,
		ScriptPath: "/scripts/" + name + ".py",
		Status:     status,
		Stdout:     "out",
		Stderr:     "",
		Duration:   150 * time.Millisecond,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestStore_CreateAndCloseRun(t *testing.T) {
	store := newStore(t)

	run, err := store.CreateRun("/repo")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.Repo != "/repo" {
		t.Fatalf("run = %+v", run)
	}
	if run.FinishedAt != nil {
		t.Error("new run should not be finished")
	}

	if err := store.CloseRun(run.ID); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FinishedAt == nil {
		t.Error("closed run should have finished_at set")
	}
}

func TestStore_AppendAndQueryUnitRuns(t *testing.T) {
	store := newStore(t)
	run, _ := store.CreateRun("/repo")

	for _, name := range []string{"calc.py::add", "calc.py::sub"} {
		if err := store.AppendUnitRun(unitRun(run.ID, name, unit.StatusPassed)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.UnitRuns(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d unit runs, want 2", len(runs))
	}
	if runs[0].UnitName != "calc.py::add" {
		t.Errorf("not ordered by unit name: %+v", runs)
	}
	if runs[0].Duration != 150*time.Millisecond {
		t.Errorf("Duration = %v", runs[0].Duration)
	}
	if runs[0].Status != unit.StatusPassed {
		t.Errorf("Status = %q", runs[0].Status)
	}
}

func TestStore_AppendOnly(t *testing.T) {
	store := newStore(t)
	run, _ := store.CreateRun("/repo")

	r := unitRun(run.ID, "calc.py::add", unit.StatusPassed)
	if err := store.AppendUnitRun(r); err != nil {
		t.Fatal(err)
	}
	r.Status = unit.StatusFailed
	if err := store.AppendUnitRun(r); err == nil {
		t.Fatal("second append for same (run, unit) should fail")
	}

	runs, _ := store.UnitRuns(run.ID)
	if len(runs) != 1 || runs[0].Status != unit.StatusPassed {
		t.Errorf("original record should be untouched: %+v", runs)
	}
}

func TestStore_LatestRun(t *testing.T) {
	store := newStore(t)

	got, err := store.LatestRun("/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("LatestRun on empty store = %+v, want nil", got)
	}

	first, _ := store.CreateRun("/repo")
	_ = first
	time.Sleep(5 * time.Millisecond)
	second, _ := store.CreateRun("/repo")
	store.CreateRun("/other")

	got, err = store.LatestRun("/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Errorf("LatestRun = %s, want %s", got.ID, second.ID)
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 3; i++ {
		store.CreateRun("/repo")
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.ListRuns("/repo", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Error("runs not newest first")
	}
}

func TestStore_LatestPerUnit(t *testing.T) {
	store := newStore(t)

	run1, _ := store.CreateRun("/repo")
	r := unitRun(run1.ID, "calc.py::add", unit.StatusFailed)
	r.CreatedAt = time.Now().UTC().Add(-time.Minute)
	store.AppendUnitRun(r)
	r = unitRun(run1.ID, "calc.py::sub", unit.StatusPassed)
	r.CreatedAt = time.Now().UTC().Add(-time.Minute)
	store.AppendUnitRun(r)

	run2, _ := store.CreateRun("/repo")
	store.AppendUnitRun(unitRun(run2.ID, "calc.py::add", unit.StatusPassed))

	latest, err := store.LatestPerUnit("/repo")
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 {
		t.Fatalf("got %d units, want 2: %+v", len(latest), latest)
	}
	if latest[0].UnitName != "calc.py::add" || latest[0].Status != unit.StatusPassed {
		t.Errorf("add latest = %+v, want the newer passed record", latest[0])
	}
	if latest[0].RunID != run2.ID {
		t.Errorf("add latest from run %s, want %s", latest[0].RunID, run2.ID)
	}
	if latest[1].UnitName != "calc.py::sub" || latest[1].Status != unit.StatusPassed {
		t.Errorf("sub latest = %+v", latest[1])
	}
}

func TestStore_History(t *testing.T) {
	store := newStore(t)

	statuses := []unit.RunStatus{unit.StatusPassed, unit.StatusFailed, unit.StatusPassed}
	base := time.Now().UTC().Add(-time.Hour)
	for i, status := range statuses {
		run, _ := store.CreateRun("/repo")
		r := unitRun(run.ID, "calc.py::add", status)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.AppendUnitRun(r); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.History("/repo", "calc.py::add", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries, want limit 2", len(history))
	}
	if history[0].Status != unit.StatusPassed || history[1].Status != unit.StatusFailed {
		t.Errorf("history not newest first: %+v", history)
	}
}

func TestStore_ForeignKeyEnforced(t *testing.T) {
	store := newStore(t)
	err := store.AppendUnitRun(unitRun("no-such-run", "calc.py::add", unit.StatusPassed))
	if err == nil {
		t.Fatal("append to nonexistent run should fail")
	}
}
