package types

import (
	"net"
	"strings"
	"time"
)

// InboundPacket is one received UDP datagram and its metadata
type InboundPacket struct {
	ID         string // Correlation ID assigned on receipt
	Payload    []byte
	Addr       net.Addr
	ReceivedAt time.Time
}

// ForwardingRule selects messages for delivery. Empty predicates always match.
type ForwardingRule struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Dst  string `yaml:"dst,omitempty" json:"dst,omitempty" toml:"dst,omitempty"`
	Src  string `yaml:"src,omitempty" json:"src,omitempty" toml:"src,omitempty"`
}

// IsCatchAll reports whether the rule has no predicates
func (r ForwardingRule) IsCatchAll() bool {
	return r.Type == "" && r.Dst == "" && r.Src == ""
}

// String renders the rule for logging, e.g. "type=msg dst=*"
func (r ForwardingRule) String() string {
	if r.IsCatchAll() {
		return "*"
	}
	var parts []string
	if r.Type != "" {
		parts = append(parts, "type="+r.Type)
	}
	if r.Dst != "" {
		parts = append(parts, "dst="+r.Dst)
	}
	if r.Src != "" {
		parts = append(parts, "src="+r.Src)
	}
	return strings.Join(parts, " ")
}

// MarkupMode selects how the chat service parses outgoing text
type MarkupMode int

const (
	MarkupPlain MarkupMode = iota
	MarkupRichText
)

func (m MarkupMode) String() string {
	switch m {
	case MarkupRichText:
		return "richtext"
	default:
		return "plain"
	}
}
