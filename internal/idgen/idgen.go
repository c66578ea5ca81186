// Package idgen issues the integer ids of users and entries.
//
// Ids are snowflake ids: a millisecond timestamp, a node number and a
// per-millisecond sequence packed into an int64. They increase monotonically
// within a process and never repeat, so rapid submissions and CSV rows
// imported in the same millisecond still get distinct ids.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

// Source hands out unique ids. Implementations must be safe for concurrent use.
type Source interface {
	Next() int64
}

// Snowflake is a Source backed by a snowflake node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for the given node number (0..1023).
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) Next() int64 {
	return s.node.Generate().Int64()
}

// Sequence is a deterministic Source counting up from a start value.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a Sequence whose first id is start.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start - 1)
	return s
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}
