package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
)

func testClient(maxRetries int) *Client {
	return NewClient(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   maxRetries,
	}, nil, nil)
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("Unexpected User-Agent: %s", got)
		}
		_, _ = fmt.Fprint(w, `{"incidents":[]}`)
	}))
	defer server.Close()

	body, err := testClient(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != `{"incidents":[]}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestFetch_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	// Override sleep for fast tests
	origSleep := fetchSleep
	fetchSleep = func(d time.Duration) {}
	defer func() { fetchSleep = origSleep }()

	body, err := testClient(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_PermanentFailureNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	origSleep := fetchSleep
	fetchSleep = func(d time.Duration) {}
	defer func() { fetchSleep = origSleep }()

	_, err := testClient(3).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if !strings.Contains(err.Error(), "unexpected status: 404") {
		t.Errorf("Unexpected error: %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetch_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	origSleep := fetchSleep
	fetchSleep = func(d time.Duration) {}
	defer func() { fetchSleep = origSleep }()

	body, err := testClient(3).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestFetch_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	origSleep := fetchSleep
	fetchSleep = func(d time.Duration) {}
	defer func() { fetchSleep = origSleep }()

	_, err := testClient(3).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	client := NewClient(model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1024,
		MaxRetries:   1,
	}, nil, nil)

	body, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(body) != 1024 {
		t.Errorf("Expected body truncated to 1024 bytes, got %d", len(body))
	}
}
