package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_GetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	for _, v := range []any{0, false, "", nil} {
		key := fmt.Sprintf("falsy-%v", v)
		if err := s.Set(ctx, key, v); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, ok, err := s.Get(ctx, key)
		if err != nil || !ok {
			t.Errorf("Get(%s) = ok %v, err %v; want present", key, ok, err)
		}
		if got != v {
			t.Errorf("Get(%s) = %v, want %v", key, got, v)
		}
	}

	if err := s.Set(ctx, "k", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", 2); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.Get(ctx, "k"); got != 2 {
		t.Errorf("Get(k) after overwrite = %v, want 2", got)
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			_ = s.Set(ctx, key, i)
			_, _, _ = s.Get(ctx, key)
		}()
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("Len() = %d, want 10", s.Len())
	}
}

func TestStoreFuncs(t *testing.T) {
	boom := errors.New("boom")
	var setKey string
	s := StoreFuncs{
		GetFunc: func(_ context.Context, key string) (any, bool, error) {
			if key == "bad" {
				return nil, false, boom
			}
			return "v:" + key, true, nil
		},
		SetFunc: func(_ context.Context, key string, _ any) error {
			setKey = key
			return nil
		},
	}
	ctx := context.Background()

	if got, ok, err := s.Get(ctx, "a"); got != "v:a" || !ok || err != nil {
		t.Errorf("Get(a) = %v, %v, %v", got, ok, err)
	}
	if _, _, err := s.Get(ctx, "bad"); !errors.Is(err, boom) {
		t.Errorf("Get(bad) error = %v, want %v", err, boom)
	}
	if err := s.Set(ctx, "b", 1); err != nil || setKey != "b" {
		t.Errorf("Set(b) = %v, recorded key %q", err, setKey)
	}
}

func TestSlotKeys(t *testing.T) {
	if got := TimeKey(`["f",1]`); got != `lastTime_["f",1]` {
		t.Errorf("TimeKey() = %q", got)
	}
	if got := ResultKey(`["f",1]`); got != `lastResult_["f",1]` {
		t.Errorf("ResultKey() = %q", got)
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&StorageError{Op: "get", Key: "lastTime_k", Err: cause})

	if !errors.Is(err, ErrStorage) {
		t.Error("StorageError should match ErrStorage")
	}
	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if errors.Is(err, ErrPanic) {
		t.Error("StorageError should not match ErrPanic")
	}
	if msg := err.Error(); msg == "" {
		t.Error("Error() is empty")
	}
}
