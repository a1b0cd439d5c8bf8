package web

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

var (
	// ErrPortInUse is returned when another process holds the port.
	ErrPortInUse = errors.New("port already in use")
	// ErrPermissionDenied is returned when binding the port needs privileges.
	ErrPermissionDenied = errors.New("permission denied binding port")
)

func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, classifyListenError(addr, err)
	}
	return ln, nil
}

func classifyListenError(addr string, err error) error {
	switch {
	case errors.Is(err, unix.EADDRINUSE):
		return fmt.Errorf("listen on %s: %w: %w", addr, ErrPortInUse, err)
	case errors.Is(err, unix.EACCES):
		return fmt.Errorf("listen on %s: %w: %w", addr, ErrPermissionDenied, err)
	default:
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
}
