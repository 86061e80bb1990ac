package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/farellandr/userevents/internal/apperrors"
)

// EncodeCursor turns a continuation key into an opaque token for clients.
// A nil key encodes to "".
func EncodeCursor(key Key) string {
	if len(key) == 0 {
		return ""
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty token means "from the start".
func DecodeCursor(token string) (Key, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.Validation("decode cursor", "exclusive_start_key is not a valid cursor")
	}
	var key Key
	if err := json.Unmarshal(raw, &key); err != nil || len(key) == 0 {
		return nil, apperrors.Validation("decode cursor", "exclusive_start_key is not a valid cursor")
	}
	return key, nil
}

// DecodeCursor decodes a client token and checks that it names exactly this
// table's key attributes, each non-empty.
func (t TableSpec) DecodeCursor(token string) (Key, error) {
	key, err := DecodeCursor(token)
	if err != nil || key == nil {
		return key, err
	}
	attrs := t.KeyAttributes()
	if len(key) != len(attrs) {
		return nil, apperrors.Validation("decode cursor", "exclusive_start_key does not belong to this listing")
	}
	for _, name := range attrs {
		if key[name] == "" {
			return nil, apperrors.Validation("decode cursor", "exclusive_start_key does not belong to this listing")
		}
	}
	return key, nil
}
