package testutil

import (
	"net"
	"sync"
	"testing"
)

var (
	portsMu       sync.Mutex
	allocatedPort = make(map[int]struct{})
)

// GetRandomPort reserves a free TCP port for a test server. The kernel
// picks the port; the process-wide allocation map keeps parallel tests
// in this binary from handing out the same one twice.
func GetRandomPort(t *testing.T) int {
	t.Helper()

	portsMu.Lock()
	defer portsMu.Unlock()

	for {
		ln, err := net.Listen("tcp", ":0")
		if err != nil {
			t.Fatalf("reserving a port: %v", err)
		}
		port := ln.Addr().(*net.TCPAddr).Port
		if err := ln.Close(); err != nil {
			t.Fatalf("releasing reserved port %d: %v", port, err)
		}

		if _, taken := allocatedPort[port]; taken {
			continue
		}
		allocatedPort[port] = struct{}{}
		return port
	}
}
