package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// MessageType is the type tag carried in the "type" member of a mesh message
type MessageType string

const (
	MessageTypeText     MessageType = "msg"
	MessageTypePosition MessageType = "pos"
	MessageTypeAck      MessageType = "ack"
	MessageTypeStatus   MessageType = "status"
	MessageTypeBulletin MessageType = "bulletin"
	MessageTypeUnknown  MessageType = "unknown"
)

// Well-known member keys of the MeshCom JSON wire format
const (
	KeyType  = "type"
	KeySrc   = "src"
	KeyDst   = "dst"
	KeyMsgID = "msg_id"
	KeyMsg   = "msg"
	KeyLat   = "lat"
	KeyLong  = "long"
	KeyAlt   = "alt"
	KeyAckID = "ack_id"
)

// ValueKind classifies a JSON member value
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// Value is a single JSON member value kept as its raw JSON text, so numbers
// and nested values are reproduced exactly as they arrived.
// The zero Value means the member is absent.
type Value struct {
	raw json.RawMessage
}

// RawValue wraps raw JSON text. The text is compacted; invalid JSON yields
// the zero (absent) Value.
func RawValue(raw []byte) Value {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Value{}
	}
	return Value{raw: buf.Bytes()}
}

// StringValue returns a JSON string value
func StringValue(s string) Value {
	return Value{raw: marshalString(s)}
}

// Kind reports the JSON kind of the value
func (v Value) Kind() ValueKind {
	if len(v.raw) == 0 {
		return KindAbsent
	}
	switch v.raw[0] {
	case '"':
		return KindString
	case 'n':
		return KindNull
	case 't', 'f':
		return KindBool
	case '{':
		return KindObject
	case '[':
		return KindArray
	default:
		return KindNumber
	}
}

// IsZero reports whether the value is absent
func (v Value) IsZero() bool {
	return len(v.raw) == 0
}

// IsNull reports whether the value is absent or JSON null
func (v Value) IsNull() bool {
	k := v.Kind()
	return k == KindAbsent || k == KindNull
}

// Raw returns the compact JSON text of the value
func (v Value) Raw() json.RawMessage {
	return v.raw
}

// String returns the textual form of the value: the unquoted content for
// strings, the literal JSON text for numbers, booleans and composites, and an
// empty string for null or absent values.
func (v Value) String() string {
	switch v.Kind() {
	case KindAbsent, KindNull:
		return ""
	case KindString:
		var s string
		if err := json.Unmarshal(v.raw, &s); err != nil {
			return string(v.raw)
		}
		return s
	default:
		return string(v.raw)
	}
}

// Float interprets the value as a number. Numeric strings are accepted.
func (v Value) Float() (float64, bool) {
	switch v.Kind() {
	case KindNumber:
		f, err := strconv.ParseFloat(string(v.raw), 64)
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Field is one top-level member of a message
type Field struct {
	Key   string
	Value Value
}

// Message is a decoded mesh message: an ordered, open record of top-level
// JSON members with a resolved type tag.
//
// Members keep their arrival order so the raw dump matches the payload.
// Setting an existing key replaces its value in place.
type Message struct {
	Type   MessageType
	fields []Field
	index  map[string]int
}

// NewMessage creates an empty message of type unknown
func NewMessage() *Message {
	return &Message{
		Type:  MessageTypeUnknown,
		index: make(map[string]int),
	}
}

// Set stores a member value. Setting "type" also updates Type.
func (m *Message) Set(key string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.fields[i].Value = v
	} else {
		m.index[key] = len(m.fields)
		m.fields = append(m.fields, Field{Key: key, Value: v})
	}

	if key == KeyType {
		if v.IsNull() {
			m.Type = MessageTypeUnknown
		} else {
			m.Type = MessageType(v.String())
		}
	}
}

// Get returns the member value for key
func (m *Message) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return Value{}, false
	}
	return m.fields[i].Value, true
}

// Text returns the textual form of a member that is present and not null
func (m *Message) Text(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// Src returns the normalized source node, or "" when absent
func (m *Message) Src() string {
	s, _ := m.Text(KeySrc)
	return s
}

// Dst returns the destination, or "" when absent
func (m *Message) Dst() string {
	s, _ := m.Text(KeyDst)
	return s
}

// MsgID returns the message identifier, or "" when absent
func (m *Message) MsgID() string {
	s, _ := m.Text(KeyMsgID)
	return s
}

// Fields returns a copy of the members in arrival order
func (m *Message) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Keys returns the member keys in arrival order
func (m *Message) Keys() []string {
	keys := make([]string, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of members
func (m *Message) Len() int {
	return len(m.fields)
}

// MarshalJSON encodes the message as a compact JSON object in member order
func (m *Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(marshalString(f.Key))
		buf.WriteByte(':')
		if f.Value.IsZero() {
			buf.WriteString("null")
		} else {
			buf.Write(f.Value.raw)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Payload returns the typed view of the message selected by its type tag
func (m *Message) Payload() Payload {
	switch m.Type {
	case MessageTypeText, MessageTypeStatus, MessageTypeBulletin:
		text, _ := m.Text(KeyMsg)
		return TextPayload{Kind: m.Type, Msg: text}
	case MessageTypePosition:
		return m.Position()
	case MessageTypeAck:
		ackID, _ := m.Text(KeyAckID)
		return AckPayload{AckID: ackID}
	default:
		return UnknownPayload{Kind: m.Type}
	}
}

// Position returns the coordinate members regardless of the type tag
func (m *Message) Position() PositionPayload {
	lat, _ := m.Get(KeyLat)
	long, _ := m.Get(KeyLong)
	alt, _ := m.Get(KeyAlt)
	return PositionPayload{Lat: lat, Long: long, Alt: alt}
}

// Payload is the type-specific part of a message
type Payload interface {
	MessageType() MessageType
}

// TextPayload carries the free-text body of msg, status and bulletin messages
type TextPayload struct {
	Kind MessageType
	Msg  string
}

func (p TextPayload) MessageType() MessageType { return p.Kind }

// PositionPayload carries the raw coordinates of a pos message.
// Alt is in feet as sent by the node.
type PositionPayload struct {
	Lat  Value
	Long Value
	Alt  Value
}

func (p PositionPayload) MessageType() MessageType { return MessageTypePosition }

// HasCoordinates reports whether both latitude and longitude are present
func (p PositionPayload) HasCoordinates() bool {
	return !p.Lat.IsNull() && !p.Long.IsNull()
}

// AckPayload carries the acknowledged message id
type AckPayload struct {
	AckID string
}

func (p AckPayload) MessageType() MessageType { return MessageTypeAck }

// UnknownPayload is used for any type tag without a typed view
type UnknownPayload struct {
	Kind MessageType
}

func (p UnknownPayload) MessageType() MessageType { return p.Kind }

// marshalString encodes s as a JSON string without HTML escaping
func marshalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
