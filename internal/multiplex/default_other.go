//go:build !linux

package multiplex

// New builds the default Multiplexer for the running platform: poll(2)
// everywhere except Linux.
func New() (Multiplexer, error) {
	return NewPoll()
}
