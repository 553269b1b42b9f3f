package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const overlayYAML = `
defaults:
  a: 1
  b:
    x: 1
dev:
  b:
    y: 2
ignored:
  a: 100
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileResolverEnvironmentOverlay(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "overlay.yml", overlayYAML)
	resolver := NewFileResolver()

	tests := []struct {
		name        string
		environment string
		want        map[string]any
	}{
		{
			name:        "no environment",
			environment: "",
			want:        map[string]any{"a": int64(1), "b": map[string]any{"x": int64(1)}},
		},
		{
			name:        "dev environment",
			environment: "dev",
			want:        map[string]any{"a": int64(1), "b": map[string]any{"x": int64(1), "y": int64(2)}},
		},
		{
			name:        "unknown environment",
			environment: "production",
			want:        map[string]any{"a": int64(1), "b": map[string]any{"x": int64(1)}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.Resolve(File(path), tc.environment)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileResolverMissingSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    map[string]any
	}{
		{name: "empty file", content: "", want: map[string]any{}},
		{name: "no defaults", content: "test:\n  a: 1\n", want: map[string]any{"a": int64(1)}},
		{name: "null defaults", content: "defaults:\ntest:\n", want: map[string]any{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "settings.yml", tc.content)
			got, err := NewFileResolver().Resolve(File(path), "test")
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileResolverNotFoundIsVerbatim(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "a_non_existing_file.yml")
	_, err := NewFileResolver().Resolve(File(missing), "")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) || pathErr.Path != missing {
		t.Fatalf("expected unwrapped *fs.PathError for %s, got %T", missing, err)
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		t.Fatalf("missing file must not be reported as SourceError")
	}
}

func TestFileResolverMalformedSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "defaults: [unclosed\n"},
		{name: "top level sequence", content: "- a\n- b\n"},
		{name: "top level scalar", content: "just a string\n"},
		{name: "defaults not a mapping", content: "defaults: 3\n"},
		{name: "environment not a mapping", content: "defaults: {}\ntest: [1, 2]\n"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "broken.yml", tc.content)
			_, err := NewFileResolver().Resolve(File(path), "test")

			var srcErr *SourceError
			if !errors.As(err, &srcErr) {
				t.Fatalf("expected SourceError, got %v", err)
			}
			if srcErr.Locator != path {
				t.Fatalf("expected locator %s, got %s", path, srcErr.Locator)
			}
			if IsNotFound(err) {
				t.Fatalf("malformed file must not look like a missing one")
			}
		})
	}
}

func TestFileResolverWrapsReadFailures(t *testing.T) {
	t.Parallel()

	readErr := errors.New("permission denied")
	resolver := NewFileResolver(WithReadFile(func(string) ([]byte, error) {
		return nil, readErr
	}))

	_, err := resolver.Resolve(File("config.yml"), "")
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if !errors.Is(err, readErr) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestFileResolverUnsupportedKind(t *testing.T) {
	t.Parallel()

	_, err := NewFileResolver().Resolve(Descriptor{Kind: "database", Locator: "postgres://"}, "")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}

	var unsupported *UnsupportedSourceError
	if !errors.As(err, &unsupported) || unsupported.Kind != "database" {
		t.Fatalf("expected UnsupportedSourceError for kind database, got %v", err)
	}
}

func TestDescriptorEquality(t *testing.T) {
	t.Parallel()

	if File("a.yml") != (Descriptor{Kind: KindFile, Locator: "a.yml"}) {
		t.Fatalf("expected identical descriptors to be equal")
	}
	if File("a.yml") == File("b.yml") {
		t.Fatalf("expected different locators to differ")
	}
	if got := File("a.yml").String(); got != "file:a.yml" {
		t.Fatalf("unexpected descriptor string %q", got)
	}
}
