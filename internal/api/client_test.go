package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ibrahim-sisar/edulite-cli/internal/session"
)

func TestObtainToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != TokenPath {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		if body["username"] != "johndoe" || body["password"] != "hunter22" {
			t.Errorf("request body = %v", body)
		}

		json.NewEncoder(w).Encode(map[string]string{"access": "new-access", "refresh": "new-refresh"})
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pair, err := client.ObtainToken(context.Background(), "johndoe", "hunter22")
	if err != nil {
		t.Fatalf("ObtainToken: %v", err)
	}
	if pair.Access != "new-access" || pair.Refresh != "new-refresh" {
		t.Errorf("pair = %+v", pair)
	}
}

func TestObtainTokenBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "No active account found with the given credentials"})
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.ObtainToken(context.Background(), "johndoe", "wrong")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("ObtainToken error = %v, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Detail, "No active account") {
		t.Errorf("Detail = %q, want the server's message", apiErr.Detail)
	}
}

func TestRefreshToken(t *testing.T) {
	tests := []struct {
		name        string
		response    map[string]string
		wantAccess  string
		wantRotated string
	}{
		{
			name:       "refresh token kept",
			response:   map[string]string{"access": "a2"},
			wantAccess: "a2",
		},
		{
			name:        "refresh token rotated",
			response:    map[string]string{"access": "a2", "refresh": "r2"},
			wantAccess:  "a2",
			wantRotated: "r2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != TokenRefreshPath {
					t.Errorf("path = %s, want %s", r.URL.Path, TokenRefreshPath)
				}
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["refresh"] != "r1" {
					t.Errorf("request body = %v, want refresh r1", body)
				}
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer srv.Close()

			client, err := New(srv.URL)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			access, rotated, err := client.RefreshToken(context.Background(), "r1")
			if err != nil {
				t.Fatalf("RefreshToken: %v", err)
			}
			if access != tt.wantAccess || rotated != tt.wantRotated {
				t.Errorf("RefreshToken = (%q, %q), want (%q, %q)", access, rotated, tt.wantAccess, tt.wantRotated)
			}
		})
	}
}

func TestRefreshTokenRejectedWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Token is invalid or expired"})
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = client.RefreshToken(context.Background(), "r1")
	if !errors.Is(err, session.ErrRefreshRejected) {
		t.Errorf("RefreshToken error = %v, want wrapped session.ErrRefreshRejected", err)
	}
}

func TestRefreshTokenTransientFailureIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = client.RefreshToken(context.Background(), "r1")
	if err == nil {
		t.Fatal("RefreshToken succeeded against a 502")
	}
	if errors.Is(err, session.ErrRefreshRejected) {
		t.Errorf("502 reported as a rejection: %v", err)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string][]string{"password2": {"Password fields didn't match."}})
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Register(context.Background(), RegisterRequest{Username: "x", Email: "x@example.com", Password: "a", Password2: "b"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Register error = %v, want *Error", err)
	}
	if !strings.Contains(apiErr.Detail, "didn't match") {
		t.Errorf("Detail = %q, want the field validation message", apiErr.Detail)
	}
}

func TestCoursesDecodesPaginationEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count": 2,
			"results": []map[string]any{
				{"id": 1, "title": "Algebra I", "subject": "math", "visibility": "public"},
				{"id": 2, "title": "World History", "subject": "history", "visibility": "private"},
			},
		})
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	courses, err := client.Courses(context.Background())
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("len(courses) = %d, want 2", len(courses))
	}
	if courses[0].Title != "Algebra I" || courses[1].Visibility != "private" {
		t.Errorf("courses = %+v", courses)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, bad := range []string{"", "localhost:8000", "://nope"} {
		if _, err := New(bad); err == nil {
			t.Errorf("New(%q) accepted an invalid base URL", bad)
		}
	}
}
