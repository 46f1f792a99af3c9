package cache

import (
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

type fakeResource struct {
	name     string
	released atomic.Int32
}

func (r *fakeResource) Release() { r.released.Add(1) }

func TestGetOrAddIdempotent(t *testing.T) {
	c := New()

	first, err := Get(c, KindTexture, "T_Rock_D", func() (*fakeResource, error) {
		return &fakeResource{name: "first"}, nil
	})
	if err != nil {
		t.Fatalf("first GetOrAdd: %v", err)
	}

	called := false
	second, err := Get(c, KindTexture, "T_Rock_D", func() (*fakeResource, error) {
		called = true
		return &fakeResource{name: "second"}, nil
	})
	if err != nil {
		t.Fatalf("second GetOrAdd: %v", err)
	}

	if first != second {
		t.Errorf("got different resources for the same key: %s vs %s", first.name, second.name)
	}
	if called {
		t.Error("second factory should not run for a cached key")
	}
}

func TestKindsAreIndependent(t *testing.T) {
	c := New()

	tex, _ := Get(c, KindTexture, "shared", func() (*fakeResource, error) { return &fakeResource{name: "tex"}, nil })
	mat, _ := Get(c, KindMaterial, "shared", func() (*fakeResource, error) { return &fakeResource{name: "mat"}, nil })

	if tex == mat {
		t.Error("same key under different kinds should not share a resource")
	}
	if c.Len(KindTexture) != 1 || c.Len(KindMaterial) != 1 || c.Len(KindMesh) != 0 {
		t.Errorf("unexpected lengths: tex=%d mat=%d mesh=%d", c.Len(KindTexture), c.Len(KindMaterial), c.Len(KindMesh))
	}
}

func TestFactoryOnceUnderRace(t *testing.T) {
	c := New()
	const callers = 64

	var calls atomic.Int32
	results := make([]*fakeResource, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			r, err := Get(c, KindMesh, "SM_Wall", func() (*fakeResource, error) {
				calls.Add(1)
				return &fakeResource{name: "SM_Wall"}, nil
			})
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("GetOrAdd: %v", err)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("factory ran %d times, want 1", n)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("caller %d observed a different resource", i)
		}
	}
}

func TestFactoryErrorIsNotCached(t *testing.T) {
	c := New()
	boom := errors.New("upload failed")

	if _, err := Get(c, KindTexture, "T_Bad", func() (*fakeResource, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	if c.Len(KindTexture) != 0 {
		t.Fatal("failed factory result should not be stored")
	}

	r, err := Get(c, KindTexture, "T_Bad", func() (*fakeResource, error) { return &fakeResource{name: "retry"}, nil })
	if err != nil || r.name != "retry" {
		t.Errorf("retry after failure: got %v, %v", r, err)
	}
}

func TestNestedKindsDoNotDeadlock(t *testing.T) {
	c := New()

	mesh, err := Get(c, KindMesh, "SM_Door", func() (*fakeResource, error) {
		_, err := Get(c, KindMaterial, "M_Door", func() (*fakeResource, error) {
			_, err := Get(c, KindTexture, "T_Door_D", func() (*fakeResource, error) {
				return &fakeResource{name: "T_Door_D"}, nil
			})
			return &fakeResource{name: "M_Door"}, err
		})
		return &fakeResource{name: "SM_Door"}, err
	})
	if err != nil {
		t.Fatalf("nested GetOrAdd: %v", err)
	}
	if mesh.name != "SM_Door" {
		t.Errorf("got %s, want SM_Door", mesh.name)
	}
	st := c.Stats()
	if st.Entries != [kindCount]int{1, 1, 1} {
		t.Errorf("entries: got %v, want one of each kind", st.Entries)
	}
}

func TestTypeMismatch(t *testing.T) {
	c := New()
	if _, err := c.GetOrAdd(KindTexture, "k", func() (Resource, error) { return &fakeResource{}, nil }); err != nil {
		t.Fatalf("GetOrAdd: %v", err)
	}

	type other struct{ fakeResource }
	if _, err := Get(c, KindTexture, "k", func() (*other, error) { return &other{}, nil }); err == nil {
		t.Error("expected an error when the cached value has another type")
	}
}

func TestClearReleasesEverything(t *testing.T) {
	c := New()

	var all []*fakeResource
	for _, kind := range []Kind{KindTexture, KindMaterial, KindMesh} {
		for _, key := range []string{"a", "b"} {
			r, _ := Get(c, kind, key, func() (*fakeResource, error) { return &fakeResource{name: key}, nil })
			all = append(all, r)
		}
	}
	_, _ = Get(c, KindTexture, "a", func() (*fakeResource, error) { return nil, nil })

	c.Clear()

	for _, r := range all {
		if n := r.released.Load(); n != 1 {
			t.Errorf("%s released %d times, want 1", r.name, n)
		}
	}
	st := c.Stats()
	if st.Entries != [kindCount]int{} {
		t.Errorf("entries after Clear: got %v, want none", st.Entries)
	}
	if st.Hits != 0 || st.Misses != 0 {
		t.Errorf("counters after Clear: hits=%d misses=%d", st.Hits, st.Misses)
	}

	// A cleared key is constructed again
	fresh, _ := Get(c, KindTexture, "a", func() (*fakeResource, error) { return &fakeResource{name: "fresh"}, nil })
	if fresh.name != "fresh" {
		t.Errorf("expected a new resource after Clear, got %s", fresh.name)
	}
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	c := New()
	f := func() (*fakeResource, error) { return &fakeResource{}, nil }

	Get(c, KindMaterial, "M_A", f)
	Get(c, KindMaterial, "M_A", f)
	Get(c, KindMaterial, "M_B", f)

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("got hits=%d misses=%d, want 1 and 2", st.Hits, st.Misses)
	}
}
