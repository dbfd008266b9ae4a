package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"ctf-portal/pkg/errors"
)

// ID is an upstream entity identifier.
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a decimal identifier, as typed on a command line or found
// in a URL path.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, errors.NewValidationError("invalid id: " + s)
	}
	return ID(n), nil
}

// Kind is the field mapping table for one entity kind. Keys are tried in
// declared order; the first present, non-null value wins.
type Kind struct {
	Name     string
	IDKeys   []string
	NameKeys []string
}

var (
	User        = Kind{Name: "user", IDKeys: []string{"userID", "userId", "id"}, NameKeys: []string{"userName", "name", "username", "account"}}
	Team        = Kind{Name: "team", IDKeys: []string{"teamID", "teamId", "id"}, NameKeys: []string{"teamName", "name"}}
	Competition = Kind{Name: "competition", IDKeys: []string{"competitionID", "competitionId", "id"}, NameKeys: []string{"title", "name"}}
	Challenge   = Kind{Name: "challenge", IDKeys: []string{"challengeID", "challengeId", "id"}, NameKeys: []string{"title", "name"}}
	Submission  = Kind{Name: "submission", IDKeys: []string{"submissionID", "submissionId", "id"}}
	Application = Kind{Name: "application", IDKeys: []string{"applicationID", "applicationId", "id"}}
	WriteUp     = Kind{Name: "writeup", IDKeys: []string{"writeUpID", "writeUpId", "writeupId", "id"}, NameKeys: []string{"title"}}
	Hint        = Kind{Name: "hint", IDKeys: []string{"hintID", "hintId", "id"}}
)

// Record is a decoded JSON object whose field names are not yet trusted.
type Record map[string]json.RawMessage

// ParseRecord decodes a JSON object. Anything else yields an empty record.
func ParseRecord(b []byte) Record {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil || rec == nil {
		return Record{}
	}
	return rec
}

func (r Record) present(key string) (json.RawMessage, bool) {
	raw, ok := r[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// ResolveID returns the first identifier found under keys. Numbers and
// numeric strings are accepted; other values are skipped.
func ResolveID(r Record, keys []string) (ID, error) {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		if id, ok := parseIDValue(raw); ok {
			return id, nil
		}
	}
	return 0, errors.NewMissingIdentifierError("record", keys)
}

// ID resolves the identifier of r as an entity of kind k.
func (r Record) ID(k Kind) (ID, error) {
	id, err := ResolveID(r, k.IDKeys)
	if err != nil {
		return 0, errors.NewMissingIdentifierError(k.Name, k.IDKeys)
	}
	return id, nil
}

// OptionalID is ID without the failure; zero means absent.
func (r Record) OptionalID(k Kind) ID {
	id, _ := ResolveID(r, k.IDKeys)
	return id
}

// Name resolves the display name of r as an entity of kind k.
func (r Record) Name(k Kind) string {
	return r.String(k.NameKeys...)
}

// String returns the first non-empty string found under keys.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// Text is String that also accepts numbers and booleans, rendered as they
// appear on the wire. Status codes come back as "1" or 1 depending on the
// endpoint.
func (r Record) Text(keys ...string) string {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
			continue
		}
		if raw[0] != '{' && raw[0] != '[' {
			return string(raw)
		}
	}
	return ""
}

// Bool returns the first boolean found under keys.
func (r Record) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b, true
		}
	}
	return false, false
}

// Int returns the first integer found under keys, or 0.
func (r Record) Int(keys ...string) int {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		if id, ok := parseIDValue(raw); ok {
			return int(id)
		}
	}
	return 0
}

// Time returns the first timestamp found under keys.
func (r Record) Time(keys ...string) Time {
	for _, k := range keys {
		raw, ok := r.present(k)
		if !ok {
			continue
		}
		var t Time
		if err := json.Unmarshal(raw, &t); err == nil && !t.IsZero() {
			return t
		}
	}
	return Time{}
}

// Child returns the nested object under key, or an empty record.
func (r Record) Child(key string) Record {
	raw, ok := r.present(key)
	if !ok {
		return Record{}
	}
	return ParseRecord(raw)
}

// RefID resolves a reference to another entity that may be embedded as an
// object ({"captain": {"userID": 3}}), given as a bare number
// ({"captain": 3}), or flattened onto the parent ({"captainId": 3}).
func (r Record) RefID(key string, k Kind, flat ...string) ID {
	if raw, ok := r.present(key); ok {
		if id, ok := parseIDValue(raw); ok {
			return id
		}
		if id := ParseRecord(raw).OptionalID(k); id != 0 {
			return id
		}
	}
	id, _ := ResolveID(r, flat)
	return id
}

// DecodeEntity decodes b into v (which should be a pointer to a type with no
// custom UnmarshalJSON) and resolves its identifier for kind k.
func DecodeEntity(b []byte, k Kind, v any) (Record, ID, error) {
	if err := json.Unmarshal(b, v); err != nil {
		return nil, 0, err
	}
	rec := ParseRecord(b)
	id, err := rec.ID(k)
	if err != nil {
		return rec, 0, err
	}
	return rec, id, nil
}

func parseIDValue(raw json.RawMessage) (ID, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return ID(i), true
}
