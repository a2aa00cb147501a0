package utils

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idMu   sync.RWMutex
	idNode *snowflake.Node
)

// InitIDGenerator sets the snowflake node used for order references.
// nodeID must be unique per running instance (0-1023).
func InitIDGenerator(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}
	idMu.Lock()
	idNode = n
	idMu.Unlock()
	return nil
}

// NewOrderReference returns a unique external order id such as ORD-1782334152389558272.
func NewOrderReference() string {
	idMu.RLock()
	n := idNode
	idMu.RUnlock()
	if n == nil {
		// tests and tools that never called InitIDGenerator
		idMu.Lock()
		if idNode == nil {
			idNode, _ = snowflake.NewNode(0)
		}
		n = idNode
		idMu.Unlock()
	}
	return "ORD-" + n.Generate().String()
}
