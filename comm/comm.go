/*Package comm opens the inputs the decoder reads from: local files, stdin
and remote streams served over TCP.

A remote stream is named tcp://host:port.  The connection is dialed with
an exponential backoff, since acquisition hosts often start serving a
moment after the consumer is launched.

	rc, err := comm.Open("tcp://daq:9000", 3*time.Second)
	if err != nil {
		return err
	}
	defer rc.Close()
	return decoder.Decode(rc, os.Stdout, opts)
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// TCPScheme prefixes the name of a remote stream
const TCPScheme = "tcp://"

var (
	// ErrNoAddress is generated when a tcp:// name has no host:port
	ErrNoAddress = errors.New("no address given for remote stream")

	// ErrTimeout is generated when a remote never accepts a connection
	ErrTimeout = errors.New("connection timeout")
)

// Backoff returns the retry policy used for connections and process starts
func Backoff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock}
}

// Retry calls op until it succeeds, it returns an error for which
// retryable is false, or the backoff gives up
func Retry(op func() error, retryable func(error) bool) error {
	var last error
	err := backoff.Retry(func() error {
		last = op()
		if last != nil && !retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}, Backoff())
	if err != nil && last != nil {
		return last
	}
	return err
}

// IsRemote reports whether name is a tcp:// stream
func IsRemote(name string) bool {
	return strings.HasPrefix(name, TCPScheme)
}

// Open opens name for reading.  "" and "-" are stdin, which is not
// closed by the returned Closer.
func Open(name string, timeout time.Duration) (io.ReadCloser, error) {
	switch {
	case name == "" || name == "-":
		return io.NopCloser(os.Stdin), nil
	case IsRemote(name):
		return Dial(strings.TrimPrefix(name, TCPScheme), timeout)
	}
	return os.Open(name)
}

// Dial connects to addr, retrying refused connections with backoff.
// Reads on the returned conn fail once the remote has been idle for timeout.
func Dial(addr string, timeout time.Duration) (net.Conn, error) {
	if addr == "" {
		return nil, ErrNoAddress
	}
	var conn net.Conn
	refused := func(err error) bool {
		return strings.Contains(strings.ToLower(err.Error()), "refused")
	}
	err := Retry(func() error {
		c, err := TCPSetup(addr, timeout)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, refused)
	if err != nil {
		if refused(err) {
			return nil, fmt.Errorf("%w to %s: %v", ErrTimeout, addr, err)
		}
		return nil, err
	}
	return conn, nil
}

// idleConn pushes the read deadline forward on every read
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

// TCPSetup opens a new TCP connection with a timeout on connect and on
// each read
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &idleConn{Conn: conn, timeout: timeout}, nil
}
