package uid

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit time-ordered IDs.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a Snowflake whose node number is derived from the hostname,
// so replicas started from the same image still get distinct nodes in most setups.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return NewSnowflakeNode(int64(h.Sum32() % 1024))
}

// NewSnowflakeNode returns a Snowflake bound to an explicit node number (0..1023).
func NewSnowflakeNode(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
