package transcoder

import (
	simbridge "github.com/wippyai/simbridge"
)

type Memory = simbridge.Memory
type Allocator = simbridge.Allocator
