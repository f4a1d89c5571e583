package services

import (
	"bytes"
	"testing"
)

func TestKeyCache_PutGetCopies(t *testing.T) {
	c := NewKeyCache()

	key := []byte{1, 2, 3, 4}
	c.Put("p-1", key)

	// mutating the caller's slice must not affect the cached copy
	key[0] = 99

	got, ok := c.Get("p-1")
	if !ok {
		t.Fatalf("expected key present")
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("cached key mutated: %v", got)
	}

	// and mutating the returned copy must not affect the cache
	got[1] = 99
	again, _ := c.Get("p-1")
	if again[1] != 2 {
		t.Fatalf("returned copy aliases the cache")
	}
}

func TestKeyCache_GetMissing(t *testing.T) {
	c := NewKeyCache()
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("expected miss")
	}
}

func TestKeyCache_DeleteWipes(t *testing.T) {
	c := NewKeyCache()
	c.Put("p-1", []byte{1, 2, 3})

	internal := c.keys["p-1"]
	c.Delete("p-1")

	if _, ok := c.Get("p-1"); ok {
		t.Fatalf("expected key gone")
	}
	for i, b := range internal {
		if b != 0 {
			t.Fatalf("byte %d not wiped", i)
		}
	}
}

func TestKeyCache_Clear(t *testing.T) {
	c := NewKeyCache()
	c.Put("p-1", []byte{1})
	c.Put("p-2", []byte{2})

	c.Clear()

	if _, ok := c.Get("p-1"); ok {
		t.Fatalf("expected p-1 gone")
	}
	if _, ok := c.Get("p-2"); ok {
		t.Fatalf("expected p-2 gone")
	}
}

func TestKeyCache_PutReplacesAndWipesOld(t *testing.T) {
	c := NewKeyCache()
	c.Put("p-1", []byte{1, 1, 1})
	old := c.keys["p-1"]

	c.Put("p-1", []byte{2, 2, 2})

	got, _ := c.Get("p-1")
	if !bytes.Equal(got, []byte{2, 2, 2}) {
		t.Fatalf("unexpected key: %v", got)
	}
	for i, b := range old {
		if b != 0 {
			t.Fatalf("old key byte %d not wiped", i)
		}
	}
}
