package fileops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBufferDetectsCRLF(t *testing.T) {
	tests := []struct {
		name string
		text string
		crlf bool
		want []string
	}{
		{"lf", "a\nb\nc\n", false, []string{"a", "b", "c"}},
		{"crlf", "a\r\nb\r\nc\r\n", true, []string{"a", "b", "c"}},
		{"no_trailing_newline", "a\nb", false, []string{"a", "b"}},
		{"empty", "", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := ParseBuffer("x", tt.text)
			if buf.CRLF != tt.crlf {
				t.Errorf("CRLF = %v, want %v", buf.CRLF, tt.crlf)
			}
			if len(buf.Lines) != len(tt.want) {
				t.Fatalf("Lines = %v, want %v", buf.Lines, tt.want)
			}
			for i := range tt.want {
				if buf.Lines[i] != tt.want[i] {
					t.Errorf("Lines[%d] = %q, want %q", i, buf.Lines[i], tt.want[i])
				}
			}
		})
	}
}

func TestBufferStringRoundTrip(t *testing.T) {
	orig := "a\r\nb\r\nc\r\n"
	buf := ParseBuffer("x", orig)
	if got := buf.String(false); got != orig {
		t.Errorf("String() = %q, want %q", got, orig)
	}
}

func TestBufferStringForceCRLF(t *testing.T) {
	buf := ParseBuffer("x", "a\nb\n")
	if got := buf.String(true); got != "a\r\nb\r\n" {
		t.Errorf("String(true) = %q", got)
	}
}

func TestBufferSlice(t *testing.T) {
	buf := ParseBuffer("x", "one\ntwo\nthree\nfour\n")
	got := buf.Slice(2, 3)
	want := []string{"two", "three"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Slice(2,3) = %v, want %v", got, want)
	}
	if got := buf.Slice(10, 20); got != nil {
		t.Errorf("Slice out of range = %v, want nil", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := WriteFileAtomic(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "out.txt" {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}
