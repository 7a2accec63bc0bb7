package model

import (
	"reflect"
	"strconv"
	"strings"
)

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func getPath(root map[string]any, path string) (any, bool) {
	segments := splitPath(path)
	if root == nil || len(segments) == 0 {
		return nil, false
	}
	var current any = root
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		case *Model:
			next, ok := getPath(node.attrs, segment)
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

// setNested writes value below root[top] following the remaining segments,
// creating intermediate maps. The updated top-level value is returned.
func setNested(current any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	node, ok := current.(map[string]any)
	if !ok || node == nil {
		node = make(map[string]any)
	} else {
		node = cloneMap(node)
	}
	node[segments[0]] = setNested(node[segments[0]], segments[1:], value)
	return node
}

func unsetNested(current any, segments []string) (any, bool) {
	node, ok := current.(map[string]any)
	if !ok || len(segments) == 0 {
		return current, false
	}
	if len(segments) == 1 {
		if _, exists := node[segments[0]]; !exists {
			return current, false
		}
		next := cloneMap(node)
		delete(next, segments[0])
		return next, true
	}
	child, removed := unsetNested(node[segments[0]], segments[1:])
	if !removed {
		return current, false
	}
	next := cloneMap(node)
	next[segments[0]] = child
	return next, true
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}

// sameValue compares attribute values. Collections and models compare by
// identity.
func sameValue(a, b any) bool {
	switch av := a.(type) {
	case *Collection:
		bv, ok := b.(*Collection)
		return ok && av == bv
	case *Model:
		bv, ok := b.(*Model)
		return ok && av == bv
	}
	switch b.(type) {
	case *Collection, *Model:
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Truthy mirrors the loose truthiness used for empty row detection: nil,
// false, zero numbers, blank strings, and empty containers are falsy.
func Truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case int32:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case *Collection:
		return v != nil
	default:
		return true
	}
}
