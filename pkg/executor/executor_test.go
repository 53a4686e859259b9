package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/reqstate/internal/testutil"
	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
)

func newTestExecutor(t *testing.T) (*Executor, *testutil.MockTransport, *cache.MemoryStore) {
	t.Helper()
	tr := testutil.NewMockTransport()
	store := cache.NewMemoryStore()
	return New(tr, store), tr, store
}

func wait(t *testing.T, h *Handle) ([]byte, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	payload, err := h.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("call did not settle in time")
	}
	return payload, err
}

func TestExecute_Keyed(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	d := descriptor.URL("https://a")

	h := exec.Execute(d, "https://a")
	if !h.Owner() {
		t.Error("first handle should own the call")
	}

	payload, err := wait(t, h)
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	if string(payload) != "https://a" {
		t.Errorf("payload = %q, want https://a", payload)
	}

	cached, err := store.Get(context.Background(), "https://a")
	if err != nil {
		t.Fatalf("payload not written back: %v", err)
	}
	if string(cached) != "https://a" {
		t.Errorf("cached = %q", cached)
	}
	if exec.Registry().Len() != 0 {
		t.Errorf("registry Len() = %d after settle, want 0", exec.Registry().Len())
	}
	if tr.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", tr.CallCount())
	}
}

func TestExecute_UnkeyedNeverShares(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	h1 := exec.Execute(d, "")
	h2 := exec.Execute(d, "")
	if h1.Call() == h2.Call() {
		t.Error("unkeyed executes must not share a call")
	}
	if exec.Registry().Len() != 0 {
		t.Errorf("unkeyed call registered: Len() = %d", exec.Registry().Len())
	}

	tr.Release()
	wait(t, h1)
	wait(t, h2)

	if tr.CallCount() != 2 {
		t.Errorf("CallCount() = %d, want 2", tr.CallCount())
	}
	if store.Len() != 0 {
		t.Errorf("unkeyed result cached: Len() = %d", store.Len())
	}
}

func TestExecute_DedupSharesCall(t *testing.T) {
	exec, tr, _ := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	h1 := exec.Execute(d, "https://a")
	h2 := exec.Execute(descriptor.URL("https://a"), "https://a")

	if h2.Owner() {
		t.Error("attached handle should not own the call")
	}
	if h1.Call() != h2.Call() {
		t.Fatal("handles for the same key should share one call")
	}
	if got := h1.Call().Refs(); got != 2 {
		t.Errorf("Refs() = %d, want 2", got)
	}

	tr.Release()

	p1, err1 := wait(t, h1)
	p2, err2 := wait(t, h2)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if string(p1) != string(p2) {
		t.Errorf("payloads differ: %q vs %q", p1, p2)
	}
	if tr.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", tr.CallCount())
	}
}

func TestHandle_CancelAttacherKeepsCall(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	owner := exec.Execute(d, "https://a")
	attacher := exec.Execute(d, "https://a")

	attacher.Cancel()
	attacher.Cancel()

	if got := owner.Call().Refs(); got != 1 {
		t.Errorf("Refs() = %d after detach, want 1", got)
	}
	if _, ok := exec.Registry().Lookup("https://a"); !ok {
		t.Error("detaching must not remove the in-flight entry")
	}

	tr.Release()

	payload, err := wait(t, owner)
	if err != nil {
		t.Fatalf("owner Wait() failed: %v", err)
	}
	if string(payload) != "https://a" {
		t.Errorf("payload = %q", payload)
	}
	if !store.Has(context.Background(), "https://a") {
		t.Error("result not cached")
	}
	if tr.CanceledCount() != 0 {
		t.Errorf("CanceledCount() = %d, want 0", tr.CanceledCount())
	}
}

func TestHandle_CancelOwnerWithAttacherKeepsCall(t *testing.T) {
	exec, tr, _ := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	owner := exec.Execute(d, "https://a")
	attacher := exec.Execute(d, "https://a")

	owner.Cancel()
	tr.Release()

	payload, err := wait(t, attacher)
	if err != nil {
		t.Fatalf("attacher Wait() failed: %v", err)
	}
	if string(payload) != "https://a" {
		t.Errorf("payload = %q", payload)
	}
}

func TestHandle_LastCancelAborts(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	h := exec.Execute(d, "https://a")
	h.Cancel()

	if exec.Registry().Len() != 0 {
		t.Errorf("aborted call still registered: Len() = %d", exec.Registry().Len())
	}

	_, err := wait(t, h)
	if !IsCanceled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("err = %v, want wrapped ErrCanceled", err)
	}
	if store.Has(context.Background(), "https://a") {
		t.Error("aborted call must not populate the cache")
	}
	if tr.CanceledCount() != 1 {
		t.Errorf("CanceledCount() = %d, want 1", tr.CanceledCount())
	}

	// A new request for the key starts a fresh call instead of attaching
	// to the aborted one.
	tr.Release()
	next := exec.Execute(d, "https://a")
	if !next.Owner() {
		t.Error("execute after abort should own a new call")
	}
	if _, err := wait(t, next); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	if tr.CallCount() != 2 {
		t.Errorf("CallCount() = %d, want 2", tr.CallCount())
	}
}

func TestExecute_FailureRemovesEntry(t *testing.T) {
	exec, _, store := newTestExecutor(t)
	d := descriptor.URL(testutil.ErrorURL)

	h := exec.Execute(d, testutil.ErrorURL)
	_, err := wait(t, h)

	if !errors.Is(err, testutil.ErrMock) {
		t.Fatalf("err = %v, want transport error verbatim", err)
	}
	if IsCanceled(err) {
		t.Error("failure must not be reported as cancellation")
	}
	if exec.Registry().Len() != 0 {
		t.Errorf("registry Len() = %d after failure, want 0", exec.Registry().Len())
	}
	if store.Has(context.Background(), testutil.ErrorURL) {
		t.Error("failure must not populate the cache")
	}
}

func TestWarmup(t *testing.T) {
	tests := []struct {
		name     string
		policy   cache.Policy
		seed     bool
		inflight bool
		wantCall bool
	}{
		{name: "no cache policy", policy: cache.NoCache, wantCall: false},
		{name: "cold cache first", policy: cache.CacheFirst, wantCall: true},
		{name: "cold cache and network", policy: cache.CacheAndNetwork, wantCall: true},
		{name: "warm cache", policy: cache.CacheFirst, seed: true, wantCall: false},
		{name: "already in flight", policy: cache.CacheFirst, inflight: true, wantCall: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, tr, store := newTestExecutor(t)
			d := descriptor.URL("https://a")
			ctx := context.Background()

			if tt.seed {
				store.Set(ctx, "https://a", []byte("seeded"))
			}
			if tt.inflight {
				tr.Hold()
				defer tr.Release()
				exec.Execute(d, "https://a")
			}

			h := exec.Warmup(ctx, d, tt.policy)
			if (h != nil) != tt.wantCall {
				t.Fatalf("Warmup() handle = %v, wantCall %v", h, tt.wantCall)
			}
			if h == nil {
				return
			}

			if _, err := wait(t, h); err != nil {
				t.Fatalf("Wait() failed: %v", err)
			}
			if !store.Has(ctx, "https://a") {
				t.Error("warmup did not populate the cache")
			}
		})
	}
}

func TestWarmup_ConsumerAttaches(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	tr.Hold()
	d := descriptor.URL("https://a")

	w := exec.Warmup(context.Background(), d, cache.CacheFirst)
	if w == nil {
		t.Fatal("Warmup() returned nil on a cold cache")
	}

	h := exec.Execute(d, "https://a")
	if h.Owner() {
		t.Error("consumer should attach to the warm-up call")
	}

	// The consumer going away leaves the warm-up call running.
	h.Cancel()
	tr.Release()

	if _, err := wait(t, w); err != nil {
		t.Fatalf("warm-up Wait() failed: %v", err)
	}
	if !store.Has(context.Background(), "https://a") {
		t.Error("warm-up result not cached")
	}
	if tr.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", tr.CallCount())
	}
}

func TestExecutor_Reset(t *testing.T) {
	exec, tr, store := newTestExecutor(t)
	ctx := context.Background()
	store.Set(ctx, "https://a", []byte("a"))

	tr.Hold()
	defer tr.Release()
	exec.Execute(descriptor.URL("https://b"), "https://b")

	if err := exec.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store Len() = %d after reset", store.Len())
	}
	if exec.Registry().Len() != 0 {
		t.Errorf("registry Len() = %d after reset", exec.Registry().Len())
	}
}

func TestNew_NilArguments(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "nil transport", fn: func() { New(nil, cache.NewMemoryStore()) }},
		{name: "nil store", fn: func() { New(testutil.NewMockTransport(), nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestWarmupCache_Default(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/users/octocat", testutil.NewJSONResponse(`{"login":"octocat"}`))

	ctx := context.Background()
	t.Cleanup(func() { Default.Reset(ctx) })

	d := descriptor.URL(origin.URL() + "/users/octocat")
	h := WarmupCache(d)
	if h == nil {
		t.Fatal("WarmupCache() returned nil on a cold cache")
	}
	if _, err := wait(t, h); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}

	cached, err := Default.Store().Get(ctx, d.BuildURL())
	if err != nil {
		t.Fatalf("warm-up result not cached: %v", err)
	}
	if string(cached) != `{"login":"octocat"}` {
		t.Errorf("cached = %s", cached)
	}

	if WarmupCache(d) != nil {
		t.Error("WarmupCache() on a warm key should be a no-op")
	}
	if origin.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", origin.RequestCount())
	}
}
