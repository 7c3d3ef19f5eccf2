package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/migrate"
	"dealflow/internal/repo"
	"dealflow/internal/translog"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func appendTransition(t *testing.T, r repo.Repo, kind, entityID, transition string) {
	t.Helper()
	tx, err := r.DB.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	lw := translog.Writer{DB: r.DB}
	if err := lw.Append(context.Background(), tx, kind, entityID, transition, "a", "b", "tester"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestDispatchDeliversPackageTransitions(t *testing.T) {
	r := newTestRepo(t)

	var mu sync.Mutex
	var got []listingSyncPayload
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("X-Dealflow-Secret") != "s3cret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var p listingSyncPayload
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer portal.Close()

	d := &Dispatcher{Repo: r, Portal: "tokko", URL: portal.URL, Secret: "s3cret"}
	ctx := context.Background()

	// the cursor primes at the tail, so this row predates the dispatcher
	appendTransition(t, r, domain.KindMarketingPackage, "pkg-0", "publish")
	d.DispatchOnce(ctx)

	appendTransition(t, r, domain.KindMarketingPackage, "pkg-1", "publish")
	appendTransition(t, r, domain.KindValidation, "val-1", "accept")
	appendTransition(t, r, domain.KindMarketingPackage, "pkg-1", "pause")
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].PackageID != "pkg-1" || got[0].Transition != "publish" || got[0].Portal != "tokko" {
		t.Fatalf("unexpected first delivery: %+v", got[0])
	}
	if got[1].Transition != "pause" {
		t.Fatalf("unexpected second delivery: %+v", got[1])
	}
}

func TestDispatchRetriesAfterFailure(t *testing.T) {
	r := newTestRepo(t)

	var mu sync.Mutex
	fail := true
	delivered := 0
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		delivered++
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	d := &Dispatcher{Repo: r, URL: portal.URL}
	ctx := context.Background()
	d.DispatchOnce(ctx)

	appendTransition(t, r, domain.KindMarketingPackage, "pkg-1", "publish")
	appendTransition(t, r, domain.KindMarketingPackage, "pkg-1", "pause")
	d.DispatchOnce(ctx)

	mu.Lock()
	fail = false
	mu.Unlock()
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	if delivered != 2 {
		t.Fatalf("expected both rows delivered after recovery, got %d", delivered)
	}
}
