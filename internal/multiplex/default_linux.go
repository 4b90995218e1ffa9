//go:build linux

package multiplex

// New builds the default Multiplexer for the running platform: epoll on
// Linux.
func New() (Multiplexer, error) {
	return NewEpoll()
}
