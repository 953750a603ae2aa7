package decoder

import (
	"errors"
	"testing"

	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType types.MessageType
		wantSrc  string
		wantKeys []string
	}{
		{
			name:     "text message with repeater suffix",
			payload:  `{"type":"msg","src":"A-1,REPEATER","dst":"B","msg":"hi"}`,
			wantType: types.MessageTypeText,
			wantSrc:  "A-1",
			wantKeys: []string{"type", "src", "dst", "msg"},
		},
		{
			name:     "src with whitespace around the first hop",
			payload:  `{"type":"pos","src":"  OE3XYZ-2 , OE1ABC-1"}`,
			wantType: types.MessageTypePosition,
			wantSrc:  "OE3XYZ-2",
			wantKeys: []string{"type", "src"},
		},
		{
			name:     "missing type becomes unknown",
			payload:  `{"src":"DEVICE-X","value":123}`,
			wantType: types.MessageTypeUnknown,
			wantSrc:  "DEVICE-X",
			wantKeys: []string{"src", "value", "type"},
		},
		{
			name:     "null type becomes unknown",
			payload:  `{"type":null}`,
			wantType: types.MessageTypeUnknown,
			wantKeys: []string{"type"},
		},
		{
			name:     "numeric type is kept as text",
			payload:  `{"type":7}`,
			wantType: types.MessageType("7"),
			wantKeys: []string{"type"},
		},
		{
			name:     "empty object",
			payload:  ` {} `,
			wantType: types.MessageTypeUnknown,
			wantKeys: []string{"type"},
		},
		{
			name:     "duplicate key keeps first position and last value",
			payload:  `{"type":"msg","src":"A","msg":"x","src":"B,C"}`,
			wantType: types.MessageTypeText,
			wantSrc:  "B",
			wantKeys: []string{"type", "src", "msg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.payload))
			require.NoError(t, err)

			assert.Equal(t, tt.wantType, msg.Type)
			assert.Equal(t, tt.wantSrc, msg.Src())
			assert.Equal(t, tt.wantKeys, msg.Keys())
		})
	}
}

func TestDecodeEncodingError(t *testing.T) {
	_, err := Decode([]byte{'{', 0xff, 0xfe, '}'})
	require.Error(t, err)

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 4, encErr.Size)
}

func TestDecodeFormatError(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "plain text", payload: "Hello, World!"},
		{name: "empty", payload: ""},
		{name: "array", payload: `[{"type":"msg"}]`},
		{name: "string", payload: `"msg"`},
		{name: "number", payload: `42`},
		{name: "truncated", payload: `{"type":"msg","src":`},
		{name: "trailing object", payload: `{"type":"msg"}{"type":"pos"}`},
		{name: "trailing garbage", payload: `{"type":"msg"} x`},
		{name: "missing colon", payload: `{"type" "msg"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.Error(t, err)

			var fmtErr *FormatError
			require.True(t, errors.As(err, &fmtErr))
			assert.Equal(t, tt.payload, fmtErr.Text)
		})
	}
}

func TestDecodePreservesNumbers(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"pos","lat":48.2082,"long":16.3738,"alt":156}`))
	require.NoError(t, err)

	lat, ok := msg.Get("lat")
	require.True(t, ok)
	assert.Equal(t, "48.2082", lat.String())

	data, err := msg.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pos","lat":48.2082,"long":16.3738,"alt":156}`, string(data))
}

func TestNormalizeSource(t *testing.T) {
	assert.Equal(t, "A-1", NormalizeSource("A-1,REPEATER"))
	assert.Equal(t, "A-1", NormalizeSource(" A-1 "))
	assert.Equal(t, "", NormalizeSource(",X"))
	assert.Equal(t, "OE1ABC-1", NormalizeSource("OE1ABC-1"))
}
