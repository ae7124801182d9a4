package style

import (
	"context"
	"testing"
)

func TestInMemoryProfileStoreRoundTrip(t *testing.T) {
	s := NewInMemoryProfileStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "u1"); err != ErrProfileNotFound {
		t.Fatalf("Get on empty store error = %v, want ErrProfileNotFound", err)
	}

	in := Profile{Visual: 0.6, Reading: 0.4}
	if err := s.Put(ctx, "u1", in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got[Visual] != 0.6 || got[Reading] != 0.4 {
		t.Fatalf("unexpected profile: %+v", got)
	}

	// Stored profile must not alias the caller's map.
	in[Visual] = 0
	got2, _ := s.Get(ctx, "u1")
	if got2[Visual] != 0.6 {
		t.Fatalf("stored profile mutated through caller map")
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "u1"); err != ErrProfileNotFound {
		t.Fatalf("Get after Delete error = %v, want ErrProfileNotFound", err)
	}
}
