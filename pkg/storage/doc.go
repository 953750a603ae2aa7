/*
Package storage persists received mesh messages.

Every backend implements the Store interface and keeps the same record
shape: an auto-assigned id, the receive time, the message type, the
normalized source, the destination, the message id and the raw payload text.
Values that were absent in the payload are stored as NULL.

# Backends

	┌──────────────── STORE BACKENDS ────────────────┐
	│                                                 │
	│  bolt      one bucket, key = big-endian seq     │
	│            value = JSON encoded Record          │
	│                                                 │
	│  sqlite    table with indexes on type, source   │
	│            and received_at, WAL journal         │
	│                                                 │
	│  postgres  same table layout, BIGSERIAL id      │
	│                                                 │
	└─────────────────────────────────────────────────┘

The SQLite layout is compatible with databases written by the original
MeshCom listener, so an existing messages.db can be pointed at directly.

# Store Filter

Only message types in the configured TypeSet are persisted. The default
set contains just "msg":

	set := storage.NewTypeSet("msg", "pos")
	if storage.ShouldStore(msg, set) {
		rec := storage.RecordFromMessage(msg, raw, time.Now())
		id, err := store.Insert(ctx, rec)
	}

A failed insert is returned as *Error. Callers in the receive loop log it
and keep going.
*/
package storage
