package detector

import (
	"reflect"
	"sort"
)

// ChangedPaths recursively compares two resource bodies and returns the
// structurally changed field paths in dot notation, relative to the body
// root. A key present on only one side reports "path (added)" or
// "path (removed)"; differing nested maps recurse instead of reporting the
// parent.
func ChangedPaths(oldBody, newBody map[string]any) []string {
	var paths []string
	compareMaps(oldBody, newBody, "", &paths)
	return paths
}

func compareMaps(oldMap, newMap map[string]any, prefix string, paths *[]string) {
	keys := unionKeys(oldMap, newMap)

	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		oldValue, inOld := oldMap[key]
		newValue, inNew := newMap[key]

		switch {
		case !inOld:
			*paths = append(*paths, path+" (added)")
		case !inNew:
			*paths = append(*paths, path+" (removed)")
		case reflect.DeepEqual(oldValue, newValue):
			// unchanged
		default:
			oldNested, oldIsMap := oldValue.(map[string]any)
			newNested, newIsMap := newValue.(map[string]any)
			if oldIsMap && newIsMap {
				compareMaps(oldNested, newNested, path, paths)
			} else {
				*paths = append(*paths, path)
			}
		}
	}
}

func unionKeys(a, b map[string]any) []string {
	set := make(map[string]bool, len(a)+len(b))
	for key := range a {
		set[key] = true
	}
	for key := range b {
		set[key] = true
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
