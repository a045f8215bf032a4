package cache

// Hooks receives cache events. Implementations must be safe for concurrent use
// and must not block.
type Hooks interface {
	Hit(key string)
	Miss(key string)
	BackendError(op, key string, err error)
	Invalidated(key string)
}

// Backend operation names reported through Hooks.BackendError.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
	OpExists = "exists"
	OpDecode = "decode"
	OpEncode = "encode"
)

type nopHooks struct{}

func (nopHooks) Hit(string)                         {}
func (nopHooks) Miss(string)                        {}
func (nopHooks) BackendError(string, string, error) {}
func (nopHooks) Invalidated(string)                 {}

// NopHooks discards every event.
func NopHooks() Hooks { return nopHooks{} }
