package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLivenessEndpoints(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	cases := map[string]string{
		"/":       "Coffee Bot is running!",
		"/health": "OK",
	}
	for path, want := range cases {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		if string(body) != want {
			t.Fatalf("GET %s: body %q, want %q", path, body, want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestStartAfterShutdownReturns(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start после Shutdown не должен обслуживать запросы")
	}
}
