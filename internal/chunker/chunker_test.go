package chunker

import (
	"strings"
	"testing"
)

func TestSplit_StripsStoragePath(t *testing.T) {
	c := New(100, 10)
	chunks, err := c.Split("data/uploads/report.pdf", "some document body")
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	for _, ch := range chunks {
		if ch.Source != "report.pdf" {
			t.Errorf("source = %q, want report.pdf", ch.Source)
		}
	}
}

func TestSplit_OverlappingWindows(t *testing.T) {
	c := New(10, 4)
	text := strings.Repeat("abcdefghij", 3) // 30 runes
	chunks, err := c.Split("doc.pdf", text)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Offset != prev.Offset+6 {
			t.Errorf("chunk %d offset = %d, want %d", i, cur.Offset, prev.Offset+6)
		}
		// The tail of one chunk must reappear at the head of the next.
		tail := prev.Text[len(prev.Text)-4:]
		if !strings.HasPrefix(cur.Text, tail) {
			t.Errorf("chunk %d does not overlap previous: %q vs %q", i, tail, cur.Text[:4])
		}
	}
}

func TestSplit_ShortDocumentSingleChunk(t *testing.T) {
	c := New(2000, 200)
	chunks, err := c.Split("tiny.pdf", "short text")
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "short text" || chunks[0].Offset != 0 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplit_EmptyTextFails(t *testing.T) {
	c := New(100, 10)
	_, err := c.Split("empty.pdf", "   \n ")
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	cerr, ok := err.(*ChunkingError)
	if !ok {
		t.Fatalf("error type = %T, want *ChunkingError", err)
	}
	if cerr.Filename != "empty.pdf" {
		t.Errorf("filename = %q, want empty.pdf", cerr.Filename)
	}
}

func TestSplit_CoversWholeDocument(t *testing.T) {
	c := New(7, 2)
	text := "the quick brown fox jumps over the lazy dog"
	chunks, err := c.Split("fox.pdf", text)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last.Text) {
		t.Errorf("last chunk %q is not the document tail", last.Text)
	}
	if last.Offset+len([]rune(last.Text)) != len([]rune(text)) {
		t.Errorf("chunks do not cover the full document")
	}
}
