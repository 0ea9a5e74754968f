package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
)

type recordingDialer struct {
	mu       sync.Mutex
	attempts []string
	accept   map[string]bool
	peers    []net.Conn
}

func (d *recordingDialer) dial(_ context.Context, path string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, path)
	if !d.accept[path] {
		return nil, errors.New("connection refused")
	}
	client, peer := net.Pipe()
	d.peers = append(d.peers, peer)

	return client, nil
}

func (d *recordingDialer) close() {
	for _, p := range d.peers {
		_ = p.Close()
	}
}

func TestLocatorStopsAtFirstAcceptingIndex(t *testing.T) {
	dir := "/run/user/1000"
	dialer := &recordingDialer{accept: map[string]bool{EndpointPath(dir, 3): true, EndpointPath(dir, 5): true}}
	defer dialer.close()

	sock, err := NewLocator([]string{dir}, WithDialFunc(dialer.dial)).Locate(context.Background())
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	defer sock.Close()

	if sock.Index() != 3 {
		t.Fatalf("expected index 3, got %d", sock.Index())
	}
	want := []string{EndpointPath(dir, 0), EndpointPath(dir, 1), EndpointPath(dir, 2), EndpointPath(dir, 3)}
	if len(dialer.attempts) != len(want) {
		t.Fatalf("unexpected attempts: %v", dialer.attempts)
	}
	for i := range want {
		if dialer.attempts[i] != want[i] {
			t.Fatalf("attempt %d: got %q want %q", i, dialer.attempts[i], want[i])
		}
	}
}

func TestLocatorReturnsPeerNotFoundAfterIndexNine(t *testing.T) {
	dir := "/tmp"
	dialer := &recordingDialer{accept: map[string]bool{EndpointPath(dir, 10): true}}
	defer dialer.close()

	_, err := NewLocator([]string{dir}, WithDialFunc(dialer.dial)).Locate(context.Background())
	if !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("expected peer not found, got %v", err)
	}
	if len(dialer.attempts) != DefaultMaxIndex+1 {
		t.Fatalf("expected %d attempts, got %d: %v", DefaultMaxIndex+1, len(dialer.attempts), dialer.attempts)
	}
	if last := dialer.attempts[len(dialer.attempts)-1]; last != EndpointPath(dir, 9) {
		t.Fatalf("expected last attempt at index 9, got %q", last)
	}
}

func TestLocatorTriesEveryDirectoryPerIndex(t *testing.T) {
	dirs := []string{"/a", "/b"}
	dialer := &recordingDialer{accept: map[string]bool{EndpointPath("/b", 1): true}}
	defer dialer.close()

	sock, err := NewLocator(dirs, WithDialFunc(dialer.dial)).Locate(context.Background())
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	defer sock.Close()

	want := []string{EndpointPath("/a", 0), EndpointPath("/b", 0), EndpointPath("/a", 1), EndpointPath("/b", 1)}
	if len(dialer.attempts) != len(want) {
		t.Fatalf("unexpected attempts: %v", dialer.attempts)
	}
	for i := range want {
		if dialer.attempts[i] != want[i] {
			t.Fatalf("attempt %d: got %q want %q", i, dialer.attempts[i], want[i])
		}
	}
	if sock.Path() != EndpointPath("/b", 1) {
		t.Fatalf("unexpected socket path %q", sock.Path())
	}
}

func TestLocatorHonorsCanceledContext(t *testing.T) {
	dialer := &recordingDialer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocator([]string{"/tmp"}, WithDialFunc(dialer.dial)).Locate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(dialer.attempts) != 0 {
		t.Fatalf("expected no dial attempts, got %v", dialer.attempts)
	}
}

func TestLocatorWithMaxIndex(t *testing.T) {
	dialer := &recordingDialer{}

	_, err := NewLocator([]string{"/tmp"}, WithDialFunc(dialer.dial), WithMaxIndex(2)).Locate(context.Background())
	if !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("expected peer not found, got %v", err)
	}
	if len(dialer.attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %v", dialer.attempts)
	}
}
