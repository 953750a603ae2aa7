/*
Package types defines the data shared by the meshrelay packages.

# Messages

A MeshCom datagram is a single JSON object. Message keeps every top-level
member in arrival order together with the resolved type tag:

	msg, _ := decoder.Decode(payload)
	msg.Type            // "msg", "pos", "ack", ... or "unknown"
	msg.Src()           // "OE1ABC-1" (repeater path already stripped)
	msg.Text("msg_id")  // textual member value, false when absent or null

Members are held as Value, which keeps the raw JSON so numbers such as
lat and long are rendered exactly as received. Payload returns a typed view
for the known type tags:

	switch p := msg.Payload().(type) {
	case types.TextPayload:     // msg, status, bulletin
	case types.PositionPayload: // pos: lat, long, alt
	case types.AckPayload:      // ack
	case types.UnknownPayload:  // anything else
	}

MarshalJSON writes the compact form used for logging and the raw dump in
notifications.

# Packets and Rules

InboundPacket is one received datagram with its correlation ID, sender
address and receive time. ForwardingRule is an optional type, dst and src
predicate; a rule with none of them set matches every message. MarkupMode
tells the delivery client whether text is plain or MarkdownV2.
*/
package types
