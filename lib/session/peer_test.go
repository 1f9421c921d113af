package session

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/nettest"

	"projekt/control/lib/message"
	"projekt/control/lib/transport"
)

const testTimeout = 2 * time.Second

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// socketPair returns both ends of a connected unix stream socket.
func socketPair(t *testing.T) (net.Conn, net.Conn) {
	l, err := nettest.NewLocalListener("unix")
	require.Nil(t, err)
	defer l.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	client, err := net.Dial(l.Addr().Network(), l.Addr().String())
	require.Nil(t, err)
	server, ok := <-accepted
	require.True(t, ok)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// peer plays the daemon side of the control interface.
type peer struct {
	t       *testing.T
	conn    net.Conn
	decoder *message.Decoder
}

func newPeer(t *testing.T, conn net.Conn) *peer {
	return &peer{
		t:       t,
		conn:    conn,
		decoder: message.NewDecoder(conn, message.ToServer),
	}
}

func (p *peer) receive() message.Message {
	require.Nil(p.t, p.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	m, err := p.decoder.Decode()
	require.Nil(p.t, err)
	return m
}

func (p *peer) receiveEOF() {
	require.Nil(p.t, p.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	_, err := p.decoder.Decode()
	require.Equal(p.t, io.EOF, err)
}

func (p *peer) send(messages ...message.Message) {
	for _, m := range messages {
		pk, err := message.Encode(m)
		require.Nil(p.t, err)
		_, err = pk.WriteTo(p.conn)
		require.Nil(p.t, err)
	}
}

func newSession(t *testing.T, opts ...Option) (*Session, *peer) {
	client, server := socketPair(t)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	s := New(transport.FromConn(client), opts...)
	t.Cleanup(func() {
		_ = s.Close()
		_ = s.Wait(context.Background())
	})
	return s, newPeer(t, server)
}

func connect(t *testing.T, s *Session, p *peer) {
	ctx := testContext(t)
	errs := make(chan error, 1)
	go func() { errs <- s.Connect(ctx, "v1") }()
	hello := p.receive()
	require.Equal(t, message.Hello{ProtocolVersion: "v1"}, hello)
	p.send(message.HandshakeAccepted{})
	require.Nil(t, <-errs)
	require.Equal(t, Connected, s.State())
}

// anomalies collects errors reported through WithAnomalyHook.
type anomalies struct {
	mutex sync.Mutex
	errs  []error
	seen  chan struct{}
}

func newAnomalies() *anomalies {
	return &anomalies{seen: make(chan struct{}, 16)}
}

func (a *anomalies) hook(err error) {
	a.mutex.Lock()
	a.errs = append(a.errs, err)
	a.mutex.Unlock()
	a.seen <- struct{}{}
}

func (a *anomalies) wait(t *testing.T) error {
	select {
	case <-a.seen:
	case <-time.After(testTimeout):
		t.Fatal("no anomaly reported")
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.errs[len(a.errs)-1]
}

// recordingTransport fails the test if anything is written or read.
type recordingTransport struct {
	mutex  sync.Mutex
	writes int
	closed chan struct{}
	once   sync.Once
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{closed: make(chan struct{})}
}

func (r *recordingTransport) Read(b []byte) (int, error) {
	<-r.closed
	return 0, io.ErrClosedPipe
}

func (r *recordingTransport) Write(b []byte) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.writes++
	return len(b), nil
}

func (r *recordingTransport) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *recordingTransport) Writes() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.writes
}
