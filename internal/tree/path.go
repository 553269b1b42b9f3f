package tree

import "strings"

// PathSeparator separates keys in a dotted path.
const PathSeparator = "."

// Lookup walks a dotted path such as "engine.workers_count". An empty path
// returns v itself. Unknown segments yield an Absent value.
func (v Value) Lookup(path string) Value {
	if path == "" {
		return v
	}
	return v.Path(strings.Split(path, PathSeparator)...)
}

// Path walks the given keys one by one. Use it when keys contain dots.
func (v Value) Path(keys ...string) Value {
	current := v
	for _, key := range keys {
		current = current.Get(key)
		if current.IsAbsent() {
			return current
		}
	}
	return current
}

// Flatten returns the leaves of v keyed by their dotted path. Sequences and
// empty mappings are leaves.
func Flatten(v Value) map[string]any {
	out := make(map[string]any)
	if v.kind != Mapping {
		if !v.IsAbsent() {
			out[""] = v.Interface()
		}
		return out
	}
	flatten(v, "", out)
	return out
}

func flatten(v Value, prefix string, out map[string]any) {
	for key, child := range v.fields {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + PathSeparator + key
		}

		if child.kind == Mapping && len(child.fields) > 0 {
			flatten(child, fullKey, out)
			continue
		}
		out[fullKey] = child.Interface()
	}
}
