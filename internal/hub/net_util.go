package hub

import (
	"errors"
	"net"
)

// isClosedConnError reports whether err is the "use of closed network
// connection" error Accept returns once Run has closed the listener during
// shutdown. That case is expected and not a fatal error.
func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
