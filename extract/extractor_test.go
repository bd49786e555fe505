package extract

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/poiesic/indexit/resource"
)

func mustSet(t *testing.T, opts ...Option) *Set {
	t.Helper()
	set, err := NewSet(opts...)
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}
	return set
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestSetExtensions(t *testing.T) {
	set := mustSet(t)

	want := []string{".docx", ".md", ".pdf", ".text", ".txt"}
	if got := set.Extensions(); !slices.Equal(got, want) {
		t.Errorf("Extensions() = %v, want %v", got, want)
	}
}

func TestSetSupports(t *testing.T) {
	set := mustSet(t)

	tests := []struct {
		ext  string
		want bool
	}{
		{".txt", true},
		{".TXT", true},
		{".pdf", true},
		{".docx", true},
		{".xyz", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := set.Supports(tt.ext); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestExtract_PlainTextFile(t *testing.T) {
	set := mustSet(t)
	path := writeFile(t, "notes.txt", []byte("indexing pipeline notes"))

	text, err := set.Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "indexing pipeline notes" {
		t.Errorf("Extract() = %q, want %q", text, "indexing pipeline notes")
	}
}

func TestExtract_UppercaseExtension(t *testing.T) {
	set := mustSet(t)
	path := writeFile(t, "REPORT.TXT", []byte("uppercase extension"))

	text, err := set.Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "uppercase extension" {
		t.Errorf("Extract() = %q, want %q", text, "uppercase extension")
	}
}

func TestExtract_NotFound(t *testing.T) {
	set := mustSet(t)

	_, err := set.Extract(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Extract() error = %v, want ErrNotFound", err)
	}
}

func TestExtract_NotFoundBeforeFormatCheck(t *testing.T) {
	set := mustSet(t)

	// A missing file with an unsupported extension reports the missing
	// file, not the format.
	_, err := set.Extract(filepath.Join(t.TempDir(), "missing.xyz"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Extract() error = %v, want ErrNotFound", err)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	set := mustSet(t)
	path := writeFile(t, "image.png", []byte{0x89, 'P', 'N', 'G'})

	_, err := set.Extract(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Extract() error = %v, want ErrUnsupportedFormat", err)
	}
	if !strings.Contains(err.Error(), ".pdf") {
		t.Errorf("error %q does not list supported formats", err)
	}
}

type pressuredGovernor struct {
	checks   int
	reclaims int
}

func (g *pressuredGovernor) Usage() uint64 { return 0 }

func (g *pressuredGovernor) Check() resource.Status {
	g.checks++
	return resource.StatusCritical
}

func (g *pressuredGovernor) Reclaim() uint64 {
	g.reclaims++
	return 0
}

func TestExtract_GovernorProbed(t *testing.T) {
	governor := &pressuredGovernor{}
	set := mustSet(t, WithGovernor(governor))
	path := writeFile(t, "notes.txt", []byte("content"))

	if _, err := set.Extract(path); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if governor.checks != 2 {
		t.Errorf("governor checks = %d, want 2", governor.checks)
	}
	if governor.reclaims != 2 {
		t.Errorf("governor reclaims = %d, want 2", governor.reclaims)
	}
}
