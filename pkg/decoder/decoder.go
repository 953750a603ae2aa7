package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cuemby/meshrelay/pkg/types"
)

// EncodingError is returned when a payload is not valid UTF-8
type EncodingError struct {
	Size int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("payload is not valid UTF-8 (%d bytes)", e.Size)
}

// FormatError is returned when a payload is not a single JSON object
type FormatError struct {
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("payload is not a JSON object: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var errNotObject = errors.New("top-level value is not an object")

// Decode turns a raw datagram payload into a message.
//
// The returned message always has a type tag ("unknown" when the payload has
// none) and a normalized src member.
func Decode(data []byte) (*types.Message, error) {
	if !utf8.Valid(data) {
		return nil, &EncodingError{Size: len(data)}
	}
	text := string(data)

	msg, err := parseObject(data)
	if err != nil {
		return nil, &FormatError{Text: text, Err: err}
	}

	normalize(msg)
	return msg, nil
}

// parseObject reads exactly one JSON object, keeping member order
func parseObject(data []byte) (*types.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	msg := types.NewMessage()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		msg.Set(key, types.RawValue(raw))
	}

	// Closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	// Reject trailing data after the object
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("unexpected data after object")
		}
		return nil, err
	}

	return msg, nil
}

// normalize applies the type default and the src comma-suffix convention
func normalize(msg *types.Message) {
	if v, ok := msg.Get(types.KeyType); !ok || v.IsNull() {
		msg.Set(types.KeyType, types.StringValue(string(types.MessageTypeUnknown)))
	}

	if src, ok := msg.Text(types.KeySrc); ok {
		msg.Set(types.KeySrc, types.StringValue(NormalizeSource(src)))
	}
}

// NormalizeSource strips the channel/repeater suffix from a source node id:
// "OE1ABC-1,OE3XYZ-12" becomes "OE1ABC-1".
func NormalizeSource(src string) string {
	if i := strings.IndexByte(src, ','); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSpace(src)
}
