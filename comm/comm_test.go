package comm_test

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nasa-jpl/picoquant/comm"
)

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func serveOnce(t *testing.T, addr string, payload []byte) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Error("could not listen:", err)
		return
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		t.Error("error accepting connection:", err)
		return
	}
	conn.Write(payload)
	conn.Close()
}

func TestOpenRemote(t *testing.T) {
	addr := freeAddr(t)
	payload := []byte("PicoHarp 300\x00\x00\x00\x002.0")
	done := make(chan struct{})
	go func() {
		// the server comes up after the first dial has been refused
		time.Sleep(100 * time.Millisecond)
		serveOnce(t, addr, payload)
		close(done)
	}()
	rc, err := comm.Open(comm.TCPScheme+addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q got %q", payload, got)
	}
	<-done
}

func TestDialRefused(t *testing.T) {
	addr := freeAddr(t)
	start := time.Now()
	_, err := comm.Dial(addr, 100*time.Millisecond)
	if !errors.Is(err, comm.ErrTimeout) {
		t.Errorf("expected %v got %v", comm.ErrTimeout, err)
	}
	if time.Since(start) < time.Second {
		t.Errorf("expected the dial to be retried before giving up")
	}
}

func TestDialNoAddress(t *testing.T) {
	if _, err := comm.Open(comm.TCPScheme, time.Second); !errors.Is(err, comm.ErrNoAddress) {
		t.Errorf("expected %v got %v", comm.ErrNoAddress, err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pt3")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	rc, err := comm.Open(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "abc" {
		t.Errorf("expected abc got %q", b)
	}
	if comm.IsRemote(path) {
		t.Errorf("a path is not remote")
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	errBad := errors.New("bad")
	err := comm.Retry(func() error {
		calls++
		return errBad
	}, func(error) bool { return false })
	if err != errBad || calls != 1 {
		t.Errorf("expected one call returning %v got %d calls and %v", errBad, calls, err)
	}

	calls = 0
	err = comm.Retry(func() error {
		calls++
		if calls < 3 {
			return errBad
		}
		return nil
	}, func(error) bool { return true })
	if err != nil || calls != 3 {
		t.Errorf("expected success on the third call got %d calls and %v", calls, err)
	}
}
