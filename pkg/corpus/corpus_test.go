package corpus

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeVocab(t *testing.T, dir string, words []string) {
	t.Helper()
	var content string
	for id, w := range words {
		content += w + " " + itoa(id) + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "vocab"), []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func writePhrasesFile(t *testing.T, dir string, n int, records [][2]any) {
	t.Helper()
	var buf []byte
	for _, rec := range records {
		freq := rec[0].(uint64)
		ids := rec[1].([]uint32)
		head := make([]byte, 8)
		binary.LittleEndian.PutUint64(head, freq)
		buf = append(buf, head...)
		for _, id := range ids {
			idBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(idBytes, id)
			buf = append(buf, idBytes...)
		}
	}
	name := filepath.Join(dir, "phrases."+itoa(n))
	if err := os.WriteFile(name, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOpenAndReadPhrases(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir, []string{"the", "quick", "fox"})
	writePhrasesFile(t, dir, 2, [][2]any{
		{uint64(100), []uint32{0, 1}},
		{uint64(50), []uint32{1, 2}},
	})

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if c.MaxLength() != 2 {
		t.Fatalf("expected max length 2, got %d", c.MaxLength())
	}
	if got := c.CountPhrases(2); got != 2 {
		t.Fatalf("expected 2 phrases, got %d", got)
	}

	phrases, err := c.ReadPhrases([]Ref{{Length: 2, LocalID: 1}, {Length: 2, LocalID: 0}})
	if err != nil {
		t.Fatalf("ReadPhrases: %v", err)
	}
	if phrases[0].Frequency != 50 || phrases[0].Words[0] != "quick" || phrases[0].Words[1] != "fox" {
		t.Fatalf("unexpected phrase 0: %+v", phrases[0])
	}
	if phrases[1].Frequency != 100 || phrases[1].Words[0] != "the" || phrases[1].Words[1] != "quick" {
		t.Fatalf("unexpected phrase 1: %+v", phrases[1])
	}
}

func TestReadPhrasesUnknownLengthFails(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir, []string{"a"})
	writePhrasesFile(t, dir, 1, [][2]any{{uint64(1), []uint32{0}}})

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.ReadPhrases([]Ref{{Length: 3, LocalID: 0}}); err == nil {
		t.Fatalf("expected error for missing length class")
	}
}

func TestCountPhrasesMissingLengthIsZero(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir, []string{"a"})
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	if got := c.CountPhrases(5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
