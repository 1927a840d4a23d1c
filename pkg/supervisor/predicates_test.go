package supervisor

import (
	"net"
	"testing"
	"time"
)

func TestPortAvailableDetectsOccupiedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind test listener: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	ok, reason := PortAvailable(port)()
	if ok {
		t.Fatalf("expected port %d to be reported unavailable, got reason %q", port, reason)
	}
}

func TestPortAvailableDetectsFreePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ok, _ := PortAvailable(port)()
	if !ok {
		t.Fatalf("expected port %d to be reported available after close", port)
	}
}

func TestBinaryOnPathFindsSh(t *testing.T) {
	ok, reason := BinaryOnPath("sh")()
	if !ok {
		t.Fatalf("expected sh to resolve on PATH, got reason %q", reason)
	}
}

func TestBinaryOnPathMissingBinary(t *testing.T) {
	ok, _ := BinaryOnPath("definitely-not-a-real-binary-xyz")()
	if ok {
		t.Fatal("expected missing binary to fail predicate")
	}
}

func TestRemoteReachableTimesOutOnUnroutable(t *testing.T) {
	ok, _ := RemoteReachable("10.255.255.1:9", 50*time.Millisecond)()
	if ok {
		t.Fatal("expected unroutable address to fail reachability check")
	}
}

func TestCombineShortCircuitsOnFirstFailure(t *testing.T) {
	calls := 0
	first := func() (bool, string) { calls++; return false, "first failed" }
	second := func() (bool, string) { calls++; return true, "" }

	ok, reason := Combine(first, second)()
	if ok {
		t.Fatal("expected combined predicate to fail")
	}
	if reason != "first failed" {
		t.Fatalf("expected first failure reason, got %q", reason)
	}
	if calls != 1 {
		t.Fatalf("expected short-circuit after first failure, got %d calls", calls)
	}
}

func TestCombineAllPass(t *testing.T) {
	always := func() (bool, string) { return true, "" }
	ok, _ := Combine(always, always)()
	if !ok {
		t.Fatal("expected combined predicate to pass when all pass")
	}
}
