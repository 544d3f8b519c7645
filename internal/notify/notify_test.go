package notify

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

func testNotifier() *Notifier {
	return NewNotifier().WithBackoff(utils.NewConstantBackoff(time.Millisecond))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/callback"},
		{name: "localhost", url: "http://localhost:8000/hook"},
		{name: "run_id template", url: "http://localhost:8000/hook/{run_id}"},
		{name: "bad scheme", url: "ftp://example.com/callback", wantErr: true},
		{name: "missing host", url: "http:///callback", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Fatalf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPayloadFor(t *testing.T) {
	r := &optimize.Result{SessionID: "s", RunID: "NG", BestConfigID: "7", BestScore: 12, Evaluations: 3, Duration: "2s"}
	p := PayloadFor(r, nil)
	if p.Status != "completed" || p.BestScore == nil || *p.BestScore != 12 || p.Duration != "2s" {
		t.Errorf("unexpected payload %+v", p)
	}

	empty := &optimize.Result{RunID: "NG", BestScore: math.NaN()}
	p = PayloadFor(empty, context.Canceled)
	if p.Status != "interrupted" || p.Error == "" || p.BestScore != nil {
		t.Errorf("unexpected payload %+v", p)
	}
	if _, err := json.Marshal(p); err != nil {
		t.Errorf("payload should marshal: %v", err)
	}
}

func TestSend(t *testing.T) {
	var got Payload
	var path, secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		secret = r.Header.Get(SecretHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := Payload{RunID: "NG", Status: "completed", Evaluations: 5}
	if err := testNotifier().Send(context.Background(), srv.URL+"/hook/{run_id}", "s3cret", p); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/hook/NG" {
		t.Errorf("expected run id substituted, got %s", path)
	}
	if secret != "s3cret" {
		t.Errorf("expected secret header, got %q", secret)
	}
	if got.Evaluations != 5 {
		t.Errorf("expected 5 evaluations, got %d", got.Evaluations)
	}
}

func TestSendRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testNotifier().Send(context.Background(), srv.URL, "", Payload{RunID: "NG"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testNotifier().Send(context.Background(), srv.URL, "", Payload{RunID: "NG"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 4 {
		t.Errorf("expected 1 try plus 3 retries, got %d", calls.Load())
	}
}
