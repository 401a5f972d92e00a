package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
)

func TestComplete(t *testing.T) {
	var got struct {
		Model    string              `json:"model"`
		System   string              `json:"system"`
		Messages []anthropic.Message `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Water looks "},{"type":"text","text":"fine."}]}`))
	}))
	defer srv.Close()

	client := anthropic.NewClient(anthropic.Config{APIKey: "secret", Model: "test-model", BaseURL: srv.URL})
	reply, err := client.Complete(context.Background(), "be brief", []anthropic.Message{
		anthropic.User("how is pond 1?"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Water looks fine." {
		t.Errorf("unexpected reply %q", reply)
	}
	if got.Model != "test-model" || got.System != "be brief" || len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestCompleteErrors(t *testing.T) {
	testCases := map[string]struct {
		status  int
		body    string
		wantErr string
		is      error
	}{
		"api error": {
			status:  http.StatusTooManyRequests,
			body:    `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantErr: "slow down",
		},
		"empty content": {
			status: http.StatusOK,
			body:   `{"content":[]}`,
			is:     anthropic.ErrEmptyResponse,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := anthropic.NewClient(anthropic.Config{APIKey: "k", BaseURL: srv.URL})
			_, err := client.Complete(context.Background(), "", []anthropic.Message{anthropic.User("hi")})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Errorf("expected %v, got %v", tc.is, err)
			}
			if tc.wantErr != "" && !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}
}
