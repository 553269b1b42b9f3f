package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func TestDeepMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dst  map[string]any
		src  map[string]any
		want map[string]any
	}{
		{
			name: "nil dst",
			dst:  nil,
			src:  map[string]any{"a": 1},
			want: map[string]any{"a": 1},
		},
		{
			name: "nil src",
			dst:  map[string]any{"a": 1},
			src:  nil,
			want: map[string]any{"a": 1},
		},
		{
			name: "src overrides dst",
			dst:  map[string]any{"a": 1},
			src:  map[string]any{"a": 2},
			want: map[string]any{"a": 2},
		},
		{
			name: "environment overlay",
			dst:  map[string]any{"a": 1, "b": map[string]any{"x": 1}},
			src:  map[string]any{"b": map[string]any{"y": 2}},
			want: map[string]any{"a": 1, "b": map[string]any{"x": 1, "y": 2}},
		},
		{
			name: "deep nested merge",
			dst: map[string]any{
				"engine": map[string]any{"pool": map[string]any{"min": 1}},
			},
			src: map[string]any{
				"engine": map[string]any{"pool": map[string]any{"max": 8}},
			},
			want: map[string]any{
				"engine": map[string]any{"pool": map[string]any{"min": 1, "max": 8}},
			},
		},
		{
			name: "scalar replaces mapping",
			dst:  map[string]any{"value": map[string]any{"a": 1}},
			src:  map[string]any{"value": "flat"},
			want: map[string]any{"value": "flat"},
		},
		{
			name: "mapping replaces scalar",
			dst:  map[string]any{"value": "flat"},
			src:  map[string]any{"value": map[string]any{"a": 1}},
			want: map[string]any{"value": map[string]any{"a": 1}},
		},
		{
			name: "sequences are replaced not appended",
			dst:  map[string]any{"hosts": []any{"a", "b"}},
			src:  map[string]any{"hosts": []any{"c"}},
			want: map[string]any{"hosts": []any{"c"}},
		},
		{
			name: "null overrides value",
			dst:  map[string]any{"a": 1},
			src:  map[string]any{"a": nil},
			want: map[string]any{"a": nil},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := DeepMerge(tc.dst, tc.src)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("DeepMerge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeepMergeClonesSource(t *testing.T) {
	t.Parallel()

	src := map[string]any{
		"engine": map[string]any{"workers_count": 3},
		"hosts":  []any{"a"},
	}
	merged := DeepMerge(nil, src)

	merged["engine"].(map[string]any)["workers_count"] = 99
	merged["hosts"].([]any)[0] = "z"

	if got := src["engine"].(map[string]any)["workers_count"]; got != 3 {
		t.Fatalf("source mapping was mutated: %v", got)
	}
	if got := src["hosts"].([]any)[0]; got != "a" {
		t.Fatalf("source sequence was mutated: %v", got)
	}
}

func TestClone(t *testing.T) {
	t.Parallel()

	if Clone(nil) != nil {
		t.Fatalf("expected nil clone of nil map")
	}

	orig := map[string]any{"a": map[string]any{"b": 1}}
	cp := Clone(orig)
	cp["a"].(map[string]any)["b"] = 2

	if diff := cmp.Diff(map[string]any{"a": map[string]any{"b": 1}}, orig); diff != "" {
		t.Fatalf("original changed (-want +got):\n%s", diff)
	}
}

func settingsMap(depth int) *rapid.Generator[map[string]any] {
	return rapid.Custom(func(t *rapid.T) map[string]any {
		size := rapid.IntRange(1, 3).Draw(t, "size")
		m := make(map[string]any, size)
		for i := 0; i < size; i++ {
			key := rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, "key")
			if depth > 0 && rapid.Bool().Draw(t, "nested") {
				m[key] = settingsMap(depth-1).Draw(t, "child")
				continue
			}
			m[key] = rapid.IntRange(-5, 5).Draw(t, "leaf")
		}
		return m
	})
}

func TestDeepMergeSourceLeavesWin(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dst := settingsMap(2).Draw(t, "dst")
		src := settingsMap(2).Draw(t, "src")

		merged := FromMap(DeepMerge(Clone(dst), src))

		for path, leaf := range Flatten(FromMap(src)) {
			if got := merged.Lookup(path).Interface(); got != leaf {
				t.Fatalf("leaf %q: got %v, want %v", path, got, leaf)
			}
		}
		for key := range dst {
			if merged.Get(key).IsAbsent() {
				t.Fatalf("key %q from dst disappeared", key)
			}
		}
	})
}

func TestDeepMergeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dst := settingsMap(2).Draw(t, "dst")
		src := settingsMap(2).Draw(t, "src")

		once := DeepMerge(Clone(dst), src)
		twice := DeepMerge(Clone(once), src)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("merging twice changed the result (-once +twice):\n%s", diff)
		}
	})
}
