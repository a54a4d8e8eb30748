package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{Timeout: time.Second, MaxRetries: 2, Backoff: time.Millisecond}
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "balance": "120.50"})
	}))
	defer srv.Close()

	var out struct {
		Status  string `json:"status"`
		Balance string `json:"balance"`
	}
	c := NewClient(testPolicy())
	if err := c.PostJSON(context.Background(), srv.URL, "sec", map[string]string{"op": "credit"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	if out.Status != "ok" || out.Balance != "120.50" {
		t.Fatalf("decoded %+v", out)
	}
}

func TestPostJSONRejectionIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	err := NewClient(testPolicy()).PostJSON(context.Background(), srv.URL, "", map[string]string{}, nil)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestPostJSONSignsBody(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewClient(testPolicy()).PostJSON(context.Background(), srv.URL, "opsecret", map[string]string{"a": "b"}, nil); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if gotSig == "" || gotSig != Sign("opsecret", gotBody) {
		t.Fatalf("signature %q does not match body", gotSig)
	}
}

func TestPostJSONTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(RetryPolicy{Timeout: 20 * time.Millisecond, MaxRetries: 1, Backoff: time.Millisecond})
	err := c.PostJSON(context.Background(), srv.URL, "", map[string]string{}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
