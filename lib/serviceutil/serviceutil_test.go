package serviceutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyAccessToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		token    string
		header   string
		expected int
	}{
		{token: "", header: "", expected: http.StatusNoContent},
		{token: "secret", header: "", expected: http.StatusUnauthorized},
		{token: "secret", header: "Bearer wrong", expected: http.StatusUnauthorized},
		{token: "secret", header: "Bearer secret", expected: http.StatusNoContent},
	}
	for _, test := range cases {
		req := httptest.NewRequest(http.MethodGet, "/searches", nil)
		if test.header != "" {
			req.Header.Set("Authorization", test.header)
		}
		rec := httptest.NewRecorder()
		VerifyAccessToken(test.token)(ok).ServeHTTP(rec, req)
		require.Equal(t, test.expected, rec.Code, test.header)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestStartHttpServerDrainsInFlightRequests(t *testing.T) {
	port := freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	started := make(chan struct{})
	var finished atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	returned := make(chan struct{})
	go func() {
		StartHttpServer(ctx, port, mux)
		close(returned)
	}()

	require.Eventually(t, func() bool {
		res, err := http.Get(base + "/ping")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	status := make(chan int, 1)
	go func() {
		res, err := http.Get(base + "/slow")
		if err != nil {
			status <- 0
			return
		}
		res.Body.Close()
		status <- res.StatusCode
	}()

	<-started
	cancel()

	select {
	case <-returned:
		require.True(t, finished.Load(), "server returned before the request finished")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	require.Equal(t, http.StatusNoContent, <-status)
}
