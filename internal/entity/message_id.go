package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type idKind int

const (
	idTemporary idKind = iota
	idPersisted
)

// MessageID identifies a message either by a client-local token (never sent
// to the server) or by the server-assigned id. The two kinds are never
// comparable to each other: a Temporary id exists only until reconciliation
// replaces it with the Persisted record.
type MessageID struct {
	kind   idKind
	local  string
	server int64
}

// NewTemporaryID mints a client-local id, unique within the process.
func NewTemporaryID() MessageID {
	return MessageID{kind: idTemporary, local: uuid.NewString()}
}

// NewPersistedID wraps a server-assigned id.
func NewPersistedID(serverId int64) MessageID {
	return MessageID{kind: idPersisted, server: serverId}
}

func (m MessageID) IsTemporary() bool {
	return m.kind == idTemporary
}

func (m MessageID) IsPersisted() bool {
	return m.kind == idPersisted
}

// ServerID returns the server-assigned id, or false for a Temporary id.
func (m MessageID) ServerID() (int64, bool) {
	if m.kind != idPersisted {
		return 0, false
	}
	return m.server, true
}

func (m MessageID) Equal(other MessageID) bool {
	if m.kind != other.kind {
		return false
	}
	if m.kind == idPersisted {
		return m.server == other.server
	}
	return m.local == other.local
}

func (m MessageID) String() string {
	if m.kind == idPersisted {
		return fmt.Sprintf("%d", m.server)
	}
	return m.local
}
