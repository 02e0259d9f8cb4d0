package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an engine object (sprite, texture, geometry) across log lines.
type ID struct {
	uuid.UUID
	Kind string
}

// NewID returns a random identifier tagged with kind.
func NewID(kind string) ID {
	return ID{UUID: uuid.New(), Kind: kind}
}

// Short is the first block of the uuid, enough to tell objects apart in logs.
func (id ID) Short() string {
	return fmt.Sprintf("%s#%s", id.Kind, id.UUID.String()[:8])
}

func (id ID) IsZero() bool {
	return id.UUID == uuid.Nil
}
