// Package transport provides the two byte streams a session runs on.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBasePath is where the daemon places the pipes of a workload.
	DefaultBasePath = "/run/ankaios/control_interface"
	// InputName is the pipe the daemon writes to and the controller reads from.
	InputName = "input"
	// OutputName is the pipe the controller writes to and the daemon reads from.
	OutputName = "output"
)

var ErrUnavailable = errors.New("transport unavailable")

// Transport is an inbound stream, an outbound stream and a way to close both.
// Close must unblock pending reads.
type Transport interface {
	io.Reader
	io.Writer
	Close() error
}

// Pair combines separately opened streams into a Transport.
type Pair struct {
	in       io.ReadCloser
	out      io.WriteCloser
	once     sync.Once
	closeErr error
}

// NewPair creates a Transport from an inbound and an outbound stream.
func NewPair(in io.ReadCloser, out io.WriteCloser) *Pair {
	return &Pair{in: in, out: out}
}

func (p *Pair) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

func (p *Pair) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

// Close closes both streams. Calling it more than once returns the first result.
func (p *Pair) Close() error {
	p.once.Do(func() {
		p.closeErr = multierr.Combine(p.out.Close(), p.in.Close())
	})
	return p.closeErr
}

// OpenPipes opens the input and output pipes below basePath.
// Both pipes must exist, they are never created.
// Opening a named pipe blocks until the peer opens its end,
// so both are opened concurrently and ctx bounds the wait.
// Every failure is reported as ErrUnavailable.
func OpenPipes(ctx context.Context, basePath string) (*Pair, error) {
	inPath := filepath.Join(basePath, InputName)
	outPath := filepath.Join(basePath, OutputName)
	for _, path := range []string{inPath, outPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	var in, out *os.File
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		in, err = os.OpenFile(inPath, os.O_RDONLY, 0)
		return
	})
	g.Go(func() (err error) {
		out, err = os.OpenFile(outPath, os.O_WRONLY|os.O_APPEND, 0)
		return
	})

	opened := make(chan error, 1)
	go func() { opened <- g.Wait() }()

	var err error
	select {
	case err = <-opened:
	case <-ctx.Done():
		err = ctx.Err()
		// The blocked open returns once the peer shows up; release whatever it got.
		go func() {
			<-opened
			closeFiles(in, out)
		}()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		closeFiles(in, out)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return NewPair(in, out), nil
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// FromConn uses a bidirectional stream connection as both streams.
func FromConn(conn net.Conn) Transport {
	return &connTransport{Conn: conn}
}

type connTransport struct {
	net.Conn
	once     sync.Once
	closeErr error
}

func (c *connTransport) Close() error {
	c.once.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// Dial connects to a stream socket and uses it as both streams.
func Dial(ctx context.Context, network string, address string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return FromConn(conn), nil
}
