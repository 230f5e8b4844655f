package config

import "strings"

// Merge merges src into dst recursively; src wins on conflicts. Keys match
// case-insensitively and keep the spelling already in dst, so an env layer's
// "stoptimeout" overrides a file layer's "stopTimeout". Nested maps taken
// from src are copied so later merges never write into a source's data.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		k = foldKey(dst, k)
		mv, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if existing, ok := dst[k].(map[string]any); ok {
			Merge(existing, mv)
			continue
		}
		dst[k] = copyMap(mv)
	}
}

// foldKey returns the key of m equal to k under case folding, or k.
func foldKey(m map[string]any, k string) string {
	if _, ok := m[k]; ok {
		return k
	}
	for existing := range m {
		if strings.EqualFold(existing, k) {
			return existing
		}
	}
	return k
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if mv, ok := v.(map[string]any); ok {
			out[k] = copyMap(mv)
			continue
		}
		out[k] = v
	}
	return out
}
