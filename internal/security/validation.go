package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Validation limits for inbound interaction payloads.
const (
	DefaultMaxPayloadSize = 1 << 20 // 1 MiB
	DefaultMaxJSONDepth   = 32
)

// Validation errors.
var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON     = errors.New("invalid JSON")
)

// ValidatePayload checks an interaction payload at the system boundary:
// size first, then JSON nesting depth. Zero limits use the defaults.
func ValidatePayload(data []byte, maxSize, maxDepth int) error {
	if err := ValidatePayloadSize(data, maxSize); err != nil {
		return err
	}
	return ValidateJSONDepth(data, maxDepth)
}

// ValidatePayloadSize checks that data does not exceed limit bytes.
// If limit is <= 0, DefaultMaxPayloadSize is used.
func ValidatePayloadSize(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxPayloadSize
	}
	if len(data) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), limit)
	}
	return nil
}

// ValidateJSONDepth checks that the JSON in data does not nest deeper
// than limit levels, before it is handed to a reflective decoder.
// If limit is <= 0, DefaultMaxJSONDepth is used.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth, tokens := 0, 0

	for ; ; tokens++ {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
			}
			// The decoder also reports EOF inside an unfinished value.
			if depth != 0 || tokens == 0 {
				return fmt.Errorf("%w: unexpected end of input", ErrInvalidJSON)
			}
			return nil
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
