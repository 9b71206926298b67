package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesTimeouts(t *testing.T) {
	srv := New(http.NotFoundHandler(), Options{Port: 8080, WriteTimeout: 30 * time.Second})

	if srv.Addr() != ":8080" {
		t.Fatalf("expected :8080 got %s", srv.Addr())
	}
	if srv.inner.ReadTimeout != 2*time.Minute {
		t.Fatalf("expected default read timeout got %s", srv.inner.ReadTimeout)
	}
	if srv.inner.WriteTimeout != 30*time.Second {
		t.Fatalf("expected write timeout 30s got %s", srv.inner.WriteTimeout)
	}
	if srv.inner.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("expected header timeout 5s got %s", srv.inner.ReadHeaderTimeout)
	}
	if srv.grace != 10*time.Second {
		t.Fatalf("expected default grace 10s got %s", srv.grace)
	}
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}), Options{ShutdownGrace: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected server to stop after cancel")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := New(http.NotFoundHandler(), Options{Port: ln.Addr().(*net.TCPAddr).Port})
	srv.inner.Addr = ln.Addr().String()
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error for a port already in use")
	}
}
