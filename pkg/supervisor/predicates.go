package supervisor

import (
	"fmt"
	"net"
	"os/exec"
	"time"
)

// PortAvailable reports whether a TCP listener can bind the given port on
// localhost, i.e. nothing is already occupying it.
func PortAvailable(port int) Predicate {
	return func() (bool, string) {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return false, fmt.Sprintf("port %d unavailable: %v", port, err)
		}
		ln.Close()
		return true, ""
	}
}

// BinaryOnPath reports whether name resolves on PATH.
func BinaryOnPath(name string) Predicate {
	return func() (bool, string) {
		if _, err := exec.LookPath(name); err != nil {
			return false, fmt.Sprintf("binary %q not found on PATH", name)
		}
		return true, ""
	}
}

// RemoteReachable reports whether a TCP connection to addr succeeds within
// budget (default 1.5s).
func RemoteReachable(addr string, budget time.Duration) Predicate {
	if budget <= 0 {
		budget = 1500 * time.Millisecond
	}
	return func() (bool, string) {
		conn, err := net.DialTimeout("tcp", addr, budget)
		if err != nil {
			return false, fmt.Sprintf("remote %s unreachable: %v", addr, err)
		}
		conn.Close()
		return true, ""
	}
}

// Combine ANDs several predicates, short-circuiting and returning the
// first failing reason.
func Combine(predicates ...Predicate) Predicate {
	return func() (bool, string) {
		for _, p := range predicates {
			if ok, reason := p(); !ok {
				return false, reason
			}
		}
		return true, ""
	}
}
