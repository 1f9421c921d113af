package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/nettest"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"projekt/control/lib/message"
	"projekt/control/lib/session"
	"projekt/control/lib/transport"
)

// startDaemon serves d on a fresh unix socket. The returned stop
// function shuts it down and may be called more than once.
func startDaemon(t *testing.T, d *Daemon) (string, func()) {
	l, err := nettest.NewLocalListener("unix")
	require.Nil(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- d.Serve(ctx, l) }()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			assert.Nil(t, <-served)
		})
	}
	t.Cleanup(stop)
	return l.Addr().String(), stop
}

func dial(t *testing.T, addr string, version string) (*session.Session, error) {
	tr, err := transport.Dial(context.Background(), "unix", addr)
	require.Nil(t, err)
	s := session.New(tr, session.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() {
		_ = s.Close()
		_ = s.Wait(context.Background())
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s, s.Connect(ctx, version)
}

func TestDaemonEchoesRequests(t *testing.T) {
	addr, _ := startDaemon(t, &Daemon{Version: "v1", Log: zaptest.NewLogger(t)})
	s, err := dial(t, addr, "v1")
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sent, err := anypb.New(wrapperspb.String("ping"))
	require.Nil(t, err)
	f, err := s.SendRequest(message.Request{ID: "dynamic_nginx@12345", Payload: sent})
	require.Nil(t, err)
	payload, err := f.Payload(ctx)
	require.Nil(t, err)
	value := &wrapperspb.StringValue{}
	require.Nil(t, payload.UnmarshalTo(value))
	assert.Equal(t, "ping", value.Value)

	response, err := s.Request(ctx, message.Request{ID: "empty"})
	require.Nil(t, err)
	assert.Equal(t, message.Failure{Message: "request without content"}, response.Outcome)

	f, err = s.SendRequest(message.Request{ID: "empty"})
	require.Nil(t, err)
	_, err = f.Payload(ctx)
	var failed *session.RequestFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "request without content", failed.Message)
}

func TestDaemonRejectsVersion(t *testing.T) {
	addr, _ := startDaemon(t, &Daemon{Version: "v1", Log: zaptest.NewLogger(t)})
	s, err := dial(t, addr, "v0")
	var rejected *session.HandshakeRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Reason, "unsupported protocol version")
	assert.Equal(t, session.Closed, s.State())
}

func TestDaemonPushesEvents(t *testing.T) {
	addr, _ := startDaemon(t, &Daemon{Version: "v1", EventInterval: 5 * time.Millisecond, Log: zaptest.NewLogger(t)})
	s, err := dial(t, addr, "v1")
	require.Nil(t, err)

	sub := s.Subscribe()
	defer sub.Close()
	var last float64
	for i := 0; i < 3; i++ {
		select {
		case event := <-sub.Events():
			assert.Equal(t, EventKind, event.Name)
			fields := &structpb.Struct{}
			require.Nil(t, event.Payload.UnmarshalTo(fields))
			sequence := fields.Fields["sequence"].GetNumberValue()
			assert.Greater(t, sequence, last)
			last = sequence
		case <-time.After(2 * time.Second):
			t.Fatal("no event received")
		}
	}
}

func TestDaemonShutdownEndsSession(t *testing.T) {
	addr, stop := startDaemon(t, &Daemon{Version: "v1", EventInterval: time.Millisecond, Log: zaptest.NewLogger(t)})
	s, err := dial(t, addr, "v1")
	require.Nil(t, err)

	stop()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session survived daemon shutdown")
	}
	assert.Equal(t, session.Closed, s.State())
}

func TestDaemonSurvivesControllerHangUp(t *testing.T) {
	addr, _ := startDaemon(t, &Daemon{Version: "v1", EventInterval: time.Millisecond, Log: zaptest.NewLogger(t)})
	first, err := dial(t, addr, "v1")
	require.Nil(t, err)
	require.Nil(t, first.Close())

	second, err := dial(t, addr, "v1")
	require.Nil(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	response, err := second.Request(ctx, message.Request{ID: "after"})
	require.Nil(t, err)
	assert.Equal(t, "after", response.ID)
}
