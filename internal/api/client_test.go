package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tutorcal/internal/model"
)

func TestFetchToday(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboard/today" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]model.Schedule{
			{ID: 1, StudentName: "Alice", TimeSlot: "14:00-15:00", Subject: "Math", Status: model.StatusPending},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok123")
	schedules, err := c.FetchToday(context.Background())
	if err != nil {
		t.Fatalf("FetchToday: %v", err)
	}
	if len(schedules) != 1 || schedules[0].StudentName != "Alice" {
		t.Fatalf("schedules = %+v", schedules)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", gotAuth)
	}
}

func TestFetchByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboard/date" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2024-03-11" {
			t.Errorf("date = %q, want 2024-03-11", got)
		}
		json.NewEncoder(w).Encode([]model.Schedule{{ID: 2, StudentName: "Bob"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	schedules, err := c.FetchByDate(context.Background(), "2024-03-11")
	if err != nil {
		t.Fatalf("FetchByDate: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != 2 {
		t.Fatalf("schedules = %+v", schedules)
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry an Authorization header")
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "teacher" || creds["password"] != "pw" {
			t.Errorf("credentials = %v", creds)
		}
		w.Write([]byte(`{"token":"fresh","currentUser":{"id":7,"username":"teacher","name":"T"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	result, err := c.Login(context.Background(), "teacher", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "fresh" || result.CurrentUser.ID != 7 {
		t.Fatalf("result = %+v", result)
	}
}

func TestWithToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	base := New(srv.URL, "")
	if err := base.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("unauthenticated client sent Authorization = %q", gotAuth)
	}

	if err := base.WithToken("t2").Health(context.Background()); err != nil {
		t.Fatalf("Health with token: %v", err)
	}
	if gotAuth != "Bearer t2" {
		t.Errorf("Authorization = %q, want Bearer t2", gotAuth)
	}
	// The original client is unchanged.
	if base.token != "" {
		t.Errorf("base token mutated to %q", base.token)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "stale")
	if _, err := c.FetchToday(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
}
