package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.docx":          "report.docx",
		"../../etc/passwd":     "passwd",
		"a b/c d.pdf":          "c_d.pdf",
		"Notes (final)!!.xlsx": "Notes_final_.xlsx",
		"":                     "file",
		"...":                  "file",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStoreSaveUniqueKeys(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	k1, err := s.Save(strings.NewReader("one"), "report.pdf")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	k2, err := s.Save(strings.NewReader("two"), "report.pdf")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("expected distinct keys for same filename, got %q twice", k1)
	}
	if !strings.HasSuffix(k1, "_report.pdf") {
		t.Fatalf("key should keep sanitized name, got %q", k1)
	}

	p1, err := s.Path(k1)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	b, err := os.ReadFile(p1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "one" {
		t.Fatalf("unexpected content %q", b)
	}
}

func TestStorePathRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, key := range []string{"", "..", "../secret", "a/b.pdf", string(filepath.Separator) + "abs"} {
		if _, err := s.Path(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestStoreRemove(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.Save(strings.NewReader("x"), "doc.pdf")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !s.Exists(key) {
		t.Fatal("expected stored file to exist")
	}
	if err := s.Remove(key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Exists(key) {
		t.Fatal("expected stored file to be gone")
	}
}
