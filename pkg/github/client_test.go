package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dataeval/dingomark/pkg/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", 1000, 1000, WithBaseURL(srv.URL))
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(User{Login: "octocat", Followers: 9000})
	})

	u, err := c.GetUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Login != "octocat" || u.Followers != 9000 {
		t.Errorf("user = %+v", u)
	}
}

func TestCreateIssueComment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/repos/DataEval/dingo/issues/42/comments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["body"] != "thanks for the report" {
			t.Errorf("body = %q", payload["body"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Comment{ID: 7, Body: payload["body"]})
	})

	comment, err := c.CreateIssueComment(context.Background(), "DataEval/dingo", 42, "thanks for the report")
	if err != nil {
		t.Fatalf("CreateIssueComment: %v", err)
	}
	if comment.ID != 7 {
		t.Errorf("comment = %+v", comment)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		reason providers.FailureReason
	}{
		{http.StatusUnauthorized, providers.ReasonUnauthorized},
		{http.StatusForbidden, providers.ReasonUnauthorized},
		{http.StatusNotFound, providers.ReasonNotFound},
		{http.StatusTooManyRequests, providers.ReasonRateLimited},
		{http.StatusBadGateway, providers.ReasonTransient},
		{http.StatusUnprocessableEntity, providers.ReasonMalformed},
	}

	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.GetUser(context.Background(), "ghost")
		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
			continue
		}
		var pe *providers.ProviderError
		if !errors.As(err, &pe) {
			t.Errorf("status %d: error type %T", tt.status, err)
			continue
		}
		if pe.Reason != tt.reason {
			t.Errorf("status %d: reason = %q, want %q", tt.status, pe.Reason, tt.reason)
		}
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})
	_, err := c.GetUser(context.Background(), "octocat")
	var pe *providers.ProviderError
	if !errors.As(err, &pe) || pe.Reason != providers.ReasonMalformed {
		t.Errorf("err = %v, want malformed_response classification", err)
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(User{Login: "octocat"})
	}))
	t.Cleanup(srv.Close)

	// One request per hour with burst 1: the second call must block, and a
	// cancelled context should abort the wait.
	c := NewClient("t", 1.0/3600, 1, WithBaseURL(srv.URL))
	ctx := context.Background()
	if _, err := c.GetUser(ctx, "octocat"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := c.GetUser(cancelled, "octocat"); err == nil {
		t.Error("expected error from cancelled context while rate limited")
	}
}
