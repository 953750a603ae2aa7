package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKind(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ValueKind
	}{
		{name: "string", raw: `"hi"`, want: KindString},
		{name: "integer", raw: `512`, want: KindNumber},
		{name: "negative float", raw: `-16.3`, want: KindNumber},
		{name: "true", raw: `true`, want: KindBool},
		{name: "false", raw: `false`, want: KindBool},
		{name: "null", raw: `null`, want: KindNull},
		{name: "object", raw: `{"a":1}`, want: KindObject},
		{name: "array", raw: `[1,2]`, want: KindArray},
		{name: "invalid", raw: `{`, want: KindAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawValue([]byte(tt.raw)).Kind())
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "hi", RawValue([]byte(`"hi"`)).String())
	assert.Equal(t, "48.2", RawValue([]byte(`48.2`)).String())
	assert.Equal(t, "true", RawValue([]byte(`true`)).String())
	assert.Equal(t, "", RawValue([]byte(`null`)).String())
	assert.Equal(t, `{"a":1}`, RawValue([]byte(`{ "a" : 1 }`)).String())
	assert.Equal(t, "", Value{}.String())
}

func TestValueFloat(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   float64
		wantOK bool
	}{
		{name: "integer", raw: `512`, want: 512, wantOK: true},
		{name: "float", raw: `48.2082`, want: 48.2082, wantOK: true},
		{name: "numeric string", raw: `" 156 "`, want: 156, wantOK: true},
		{name: "text string", raw: `"high"`, wantOK: false},
		{name: "bool", raw: `true`, wantOK: false},
		{name: "null", raw: `null`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RawValue([]byte(tt.raw)).Float()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestMessageSetKeepsOrder(t *testing.T) {
	m := NewMessage()
	m.Set("src", StringValue("A-1"))
	m.Set("type", StringValue("msg"))
	m.Set("msg", StringValue("hello"))
	m.Set("src", StringValue("B-2"))

	assert.Equal(t, []string{"src", "type", "msg"}, m.Keys())
	assert.Equal(t, "B-2", m.Src())
	assert.Equal(t, MessageTypeText, m.Type)
	assert.Equal(t, 3, m.Len())
}

func TestMessageTypeFollowsMember(t *testing.T) {
	m := NewMessage()
	assert.Equal(t, MessageTypeUnknown, m.Type)

	m.Set("type", StringValue("pos"))
	assert.Equal(t, MessageTypePosition, m.Type)

	m.Set("type", RawValue([]byte("null")))
	assert.Equal(t, MessageTypeUnknown, m.Type)
}

func TestMessageText(t *testing.T) {
	m := NewMessage()
	m.Set("dst", RawValue([]byte("null")))
	m.Set("msg_id", StringValue("ABC"))

	_, ok := m.Text("dst")
	assert.False(t, ok, "null members are not text")
	_, ok = m.Text("missing")
	assert.False(t, ok)

	id, ok := m.Text("msg_id")
	assert.True(t, ok)
	assert.Equal(t, "ABC", id)
	assert.Equal(t, "", m.Dst())
}

func TestMessageMarshalJSON(t *testing.T) {
	m := NewMessage()
	m.Set("type", StringValue("pos"))
	m.Set("lat", RawValue([]byte("48.20")))
	m.Set("note", StringValue("<a & b>"))
	m.Set("extra", RawValue([]byte(`{ "x": [1, 2] }`)))

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pos","lat":48.20,"note":"<a & b>","extra":{"x":[1,2]}}`, string(data))
}

func TestMessagePayload(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		m := NewMessage()
		m.Set("type", StringValue("bulletin"))
		m.Set("msg", StringValue("net tonight"))
		p, ok := m.Payload().(TextPayload)
		require.True(t, ok)
		assert.Equal(t, "net tonight", p.Msg)
		assert.Equal(t, MessageTypeBulletin, p.MessageType())
	})

	t.Run("position", func(t *testing.T) {
		m := NewMessage()
		m.Set("type", StringValue("pos"))
		m.Set("lat", RawValue([]byte("48.2")))
		m.Set("long", RawValue([]byte("16.3")))
		p, ok := m.Payload().(PositionPayload)
		require.True(t, ok)
		assert.True(t, p.HasCoordinates())
		assert.True(t, p.Alt.IsZero())
	})

	t.Run("ack", func(t *testing.T) {
		m := NewMessage()
		m.Set("type", StringValue("ack"))
		m.Set("ack_id", StringValue("42"))
		p, ok := m.Payload().(AckPayload)
		require.True(t, ok)
		assert.Equal(t, "42", p.AckID)
	})

	t.Run("unknown", func(t *testing.T) {
		m := NewMessage()
		m.Set("type", StringValue("telemetry"))
		p, ok := m.Payload().(UnknownPayload)
		require.True(t, ok)
		assert.Equal(t, MessageType("telemetry"), p.MessageType())
	})
}

func TestForwardingRuleString(t *testing.T) {
	assert.Equal(t, "*", ForwardingRule{}.String())
	assert.Equal(t, "type=msg dst=OE1XYZ", ForwardingRule{Type: "msg", Dst: "OE1XYZ"}.String())
	assert.True(t, ForwardingRule{}.IsCatchAll())
	assert.False(t, ForwardingRule{Src: "A"}.IsCatchAll())
}
