package render

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/cuemby/meshrelay/pkg/types"
)

// Placeholder values that are not taken from message members
const (
	FieldAltMeters    = "_alt_m"
	FieldMapLink      = "_map_link"
	FieldRawJSONShort = "_raw_json_short"
)

// Sentinel strings used in rendered output
const (
	MissingValue = "???"
	NotAvailable = "N/A"
	InvalidValue = "invalid"
)

// RawJSONLimit is the maximum number of characters of the raw JSON dump
const RawJSONLimit = 200

const feetToMeters = 0.3048

// FieldClass tells how a context value was produced
type FieldClass int

const (
	// ClassEscaped values are MarkdownV2-escaped member text
	ClassEscaped FieldClass = iota
	// ClassRaw values are member text inserted verbatim
	ClassRaw
	// ClassComputed values are derived from several members, inserted verbatim
	ClassComputed
)

// rawFields are inserted unescaped: they end up in code spans or URLs
var rawFields = map[string]bool{
	types.KeyLat:  true,
	types.KeyLong: true,
	types.KeyAlt:  true,
}

// Context holds the placeholder values for one render call
type Context struct {
	values  map[string]string
	classes map[string]FieldClass
}

// NewContext builds the render context of msg.
//
// Scalar members are escaped, except lat, long and alt which are raw.
// Null and composite members are left out and render as MissingValue.
func NewContext(msg *types.Message) *Context {
	c := &Context{
		values:  make(map[string]string, msg.Len()+4),
		classes: make(map[string]FieldClass, msg.Len()+4),
	}

	for _, f := range msg.Fields() {
		switch f.Value.Kind() {
		case types.KindString, types.KindNumber, types.KindBool:
		default:
			continue
		}
		if rawFields[f.Key] {
			c.set(f.Key, f.Value.String(), ClassRaw)
		} else {
			c.set(f.Key, Escape(f.Value.String()), ClassEscaped)
		}
	}
	c.set(types.KeyType, Escape(string(msg.Type)), ClassEscaped)

	pos := msg.Position()
	c.set(FieldAltMeters, altitudeMeters(pos.Alt), ClassComputed)
	c.set(FieldMapLink, mapLink(pos), ClassComputed)
	c.set(FieldRawJSONShort, rawJSONShort(msg), ClassComputed)

	return c
}

func (c *Context) set(name, value string, class FieldClass) {
	c.values[name] = value
	c.classes[name] = class
}

// Get returns the value for a placeholder name
func (c *Context) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Class returns how the named value was produced
func (c *Context) Class(name string) (FieldClass, bool) {
	class, ok := c.classes[name]
	return class, ok
}

// Len returns the number of values
func (c *Context) Len() int {
	return len(c.values)
}

// altitudeMeters converts the feet altitude to meters with one decimal
func altitudeMeters(alt types.Value) string {
	if alt.IsNull() {
		return NotAvailable
	}
	feet, ok := alt.Float()
	if !ok {
		return InvalidValue
	}
	return strconv.FormatFloat(feet*feetToMeters, 'f', 1, 64)
}

// mapLink builds an OpenStreetMap link centered on the position
func mapLink(pos types.PositionPayload) string {
	if !pos.HasCoordinates() {
		return NotAvailable
	}
	lat, long := pos.Lat.String(), pos.Long.String()
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=15/%s/%s", lat, long, lat, long)
}

// rawJSONShort returns the compact JSON of msg cut to RawJSONLimit characters,
// escaped for a code span
func rawJSONShort(msg *types.Message) string {
	data, err := msg.MarshalJSON()
	if err != nil {
		return InvalidValue
	}
	return EscapeCode(truncate(string(data), RawJSONLimit))
}

// truncate cuts s to limit runes and appends "..." when anything was cut
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
