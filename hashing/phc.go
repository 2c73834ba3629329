package hashing

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// phcRecord is a credential in dollar-delimited PHC-style text:
//
//	$<id>$<params>$<salt_base64>$<hash_base64>
//
// params is optional; records without it have one segment fewer.
type phcRecord struct {
	id     string
	params map[string]uint64
	order  []string
	salt   []byte
	hash   []byte
}

// encodePHC serialises a record. The base64 encoding uses the standard
// alphabet without padding (RFC 4648 §4 without "=").
func encodePHC(r phcRecord) string {
	var b strings.Builder
	b.WriteByte('$')
	b.WriteString(r.id)
	if len(r.order) > 0 {
		b.WriteByte('$')
		for i, k := range r.order {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strconv.FormatUint(r.params[k], 10))
		}
	}
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(r.salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(r.hash))
	return b.String()
}

// decodePHC parses a record whose identifier must equal id. withParams
// selects the five-segment form ($id$params$salt$hash) over the four-segment
// form ($id$salt$hash).
func decodePHC(encoded, id string, withParams bool) (*phcRecord, error) {
	parts := strings.Split(encoded, "$")
	want := 4
	if withParams {
		want = 5
	}
	if len(parts) != want || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected %d-segment string, got %d segments",
			ErrInvalidHash, want-1, len(parts)-1)
	}
	if parts[1] != id {
		return nil, fmt.Errorf("%w: identifier %q, want %q", ErrAlgorithmMismatch, parts[1], id)
	}

	r := &phcRecord{id: id}
	rest := parts[2:]
	if withParams {
		params, order, err := parseParams(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
		r.params, r.order = params, order
		rest = parts[3:]
	}

	salt, err := base64.RawStdEncoding.DecodeString(rest[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(rest[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash base64: %v", ErrInvalidHash, err)
	}
	if len(salt) == 0 || len(hash) == 0 {
		return nil, fmt.Errorf("%w: empty salt or hash", ErrInvalidHash)
	}
	r.salt, r.hash = salt, hash
	return r, nil
}

// parseParams splits "ln=14,r=8,p=1" into a map, keeping key order.
func parseParams(s string) (map[string]uint64, []string, error) {
	out := make(map[string]uint64)
	var order []string
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, nil, fmt.Errorf("malformed param %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("non-numeric value in %q: %v", kv, err)
		}
		if _, dup := out[kv[:eq]]; dup {
			return nil, nil, fmt.Errorf("duplicate param %q", kv[:eq])
		}
		out[kv[:eq]] = v
		order = append(order, kv[:eq])
	}
	return out, order, nil
}
