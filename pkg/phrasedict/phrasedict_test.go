package phrasedict

import (
	"encoding/binary"
	"fmt"
	"testing"
)

func encodeVal(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func TestBuildAndGetRoundTrip(t *testing.T) {
	keys := make([]string, 0, 500)
	values := make([][]byte, 0, 500)
	for i := 0; i < 500; i++ {
		keys = append(keys, fmt.Sprintf("phrase-%d", i))
		values = append(values, encodeVal(uint32(i)))
	}

	d, err := Build(keys, values, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i, k := range keys {
		got, ok := d.Get(k)
		if !ok {
			t.Fatalf("expected hit for key %q", k)
		}
		if binary.LittleEndian.Uint32(got) != uint32(i) {
			t.Fatalf("key %q: got %d, want %d", k, binary.LittleEndian.Uint32(got), i)
		}
	}
}

func TestGetMissingKeyIsMiss(t *testing.T) {
	keys := []string{"alpha", "bravo", "charlie"}
	values := [][]byte{encodeVal(1), encodeVal(2), encodeVal(3)}
	d, err := Build(keys, values, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := d.Get("not-in-set"); ok {
		t.Fatalf("expected miss for key outside the build set")
	}
}

func TestBuildRejectsMismatchedValueSizes(t *testing.T) {
	keys := []string{"a", "b"}
	values := [][]byte{{1, 2, 3}, {1, 2}}
	if _, err := Build(keys, values, 0); err == nil {
		t.Fatalf("expected error for mismatched value sizes")
	}
}

func TestMultipleShardsRoundTrip(t *testing.T) {
	keys := make([]string, 0, 200)
	values := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		keys = append(keys, fmt.Sprintf("k%d", i))
		values = append(values, encodeVal(uint32(i*7)))
	}
	d, err := Build(keys, values, 20)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(d.shards) < 2 {
		t.Fatalf("expected multiple shards, got %d", len(d.shards))
	}
	for i, k := range keys {
		got, ok := d.Get(k)
		if !ok || binary.LittleEndian.Uint32(got) != uint32(i*7) {
			t.Fatalf("key %q: bad lookup", k)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	keys := []string{"one", "two", "three", "four"}
	values := [][]byte{encodeVal(1), encodeVal(2), encodeVal(3), encodeVal(4)}
	d, err := Build(keys, values, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dir := t.TempDir()
	if err := d.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, k := range keys {
		got, ok := loaded.Get(k)
		if !ok || binary.LittleEndian.Uint32(got) != uint32(i+1) {
			t.Fatalf("key %q: bad lookup after reload", k)
		}
	}
}
