package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/cuemby/meshrelay/pkg/types"
)

// Backend names accepted by Open
const (
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Record is one persisted mesh message. Empty strings mean the value was
// absent and are stored as NULL by the SQL backends.
type Record struct {
	ID         uint64    `json:"id"`
	MsgID      string    `json:"msg_id,omitempty"`
	Source     string    `json:"source,omitempty"`
	Dest       string    `json:"dest,omitempty"`
	Type       string    `json:"message_type,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Raw        string    `json:"raw_message"`
}

// Store defines the interface for message persistence
type Store interface {
	// Insert persists a record and returns its assigned ID
	Insert(ctx context.Context, rec *Record) (uint64, error)

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*Record, error)

	// Close releases the underlying database
	Close() error
}

// Error reports a failed storage operation
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config selects and configures a storage backend
type Config struct {
	Backend string
	Path    string // bolt and sqlite database file
	Table   string // bucket or table name
	DSN     string // postgres connection string
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is safe to use as a table or bucket name
func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}

// Open creates the store selected by cfg.Backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	if !ValidTableName(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	switch cfg.Backend {
	case "", BackendBolt:
		return NewBoltStore(cfg.Path, cfg.Table)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path, cfg.Table)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// RecordFromMessage extracts the persisted fields of a decoded message.
// raw is the decoded payload text as received.
func RecordFromMessage(msg *types.Message, raw string, receivedAt time.Time) *Record {
	return &Record{
		MsgID:      msg.MsgID(),
		Source:     msg.Src(),
		Dest:       msg.Dst(),
		Type:       string(msg.Type),
		ReceivedAt: receivedAt,
		Raw:        raw,
	}
}

// TypeSet is an immutable set of message type tags accepted for storage
type TypeSet struct {
	members map[types.MessageType]struct{}
}

// NewTypeSet creates a set from the given type tags
func NewTypeSet(tags ...string) TypeSet {
	members := make(map[types.MessageType]struct{}, len(tags))
	for _, tag := range tags {
		members[types.MessageType(tag)] = struct{}{}
	}
	return TypeSet{members: members}
}

// DefaultTypeSet stores only text messages
func DefaultTypeSet() TypeSet {
	return NewTypeSet(string(types.MessageTypeText))
}

// Contains reports whether t is in the set
func (s TypeSet) Contains(t types.MessageType) bool {
	_, ok := s.members[t]
	return ok
}

// Len returns the number of tags in the set
func (s TypeSet) Len() int {
	return len(s.members)
}

// List returns the tags in sorted order
func (s TypeSet) List() []string {
	out := make([]string, 0, len(s.members))
	for t := range s.members {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// ShouldStore reports whether msg is eligible for persistence
func ShouldStore(msg *types.Message, set TypeSet) bool {
	return set.Contains(msg.Type)
}
