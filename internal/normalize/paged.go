package normalize

import (
	"bytes"
	"encoding/json"
)

// Page is the canonical paged collection. CurrentPage is zero-based.
type Page[T any] struct {
	Items         []T `json:"items"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	CurrentPage   int `json:"currentPage"`
	PageSize      int `json:"pageSize,omitempty"`
}

// EmptyPage is the default returned when nothing usable was found.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Items: []T{}}
}

type pageMeta struct {
	TotalPages    *int `json:"totalPages"`
	TotalElements *int `json:"totalElements"`
	CurrentPage   *int `json:"currentPage"`
	PageSize      *int `json:"pageSize"`
}

// UnwrapPaged extracts a page of T from env. It accepts two wire variants:
//
//	{"data": {"<itemsKey>": [...], "totalPages": n, ...}}
//	{"data": [...]}
//
// The second is wrapped as a single page. Anything else, including a failed
// envelope, yields EmptyPage. Items that do not decode into T are dropped.
func UnwrapPaged[T any](env *Envelope, itemsKey string) Page[T] {
	if env == nil || !env.Success || !env.HasData() {
		return EmptyPage[T]()
	}
	data := bytes.TrimSpace(env.Data)

	switch data[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return EmptyPage[T]()
		}
		raw, ok := obj[itemsKey]
		if !ok || !isArray(raw) {
			return EmptyPage[T]()
		}
		items := decodeItems[T](raw)
		var meta pageMeta
		_ = json.Unmarshal(data, &meta)

		page := Page[T]{Items: items}
		page.TotalPages = nonNegative(meta.TotalPages)
		page.TotalElements = nonNegative(meta.TotalElements)
		page.CurrentPage = nonNegative(meta.CurrentPage)
		page.PageSize = nonNegative(meta.PageSize)
		if meta.TotalElements == nil {
			page.TotalElements = len(items)
		}
		return page

	case '[':
		items := decodeItems[T](data)
		return Page[T]{
			Items:         items,
			TotalPages:    1,
			TotalElements: len(items),
			CurrentPage:   0,
		}
	}
	return EmptyPage[T]()
}

// UnwrapList extracts a plain list, tolerating the same two shapes as
// UnwrapPaged. It is used by endpoints that do not page.
func UnwrapList[T any](env *Envelope, itemsKey string) []T {
	return UnwrapPaged[T](env, itemsKey).Items
}

func decodeItems[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}
	}
	items := make([]T, 0, len(elems))
	for _, e := range elems {
		var item T
		if err := json.Unmarshal(e, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
