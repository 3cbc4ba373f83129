package glpi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Adjenz/perplexity-glpi-ticket/internal/config"
	apperrors "github.com/Adjenz/perplexity-glpi-ticket/pkg/util"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.GLPIConfig{
		APIURL:    srv.URL,
		AppToken:  "app-token",
		UserToken: "user-token",
	}
	return NewSession(cfg, zap.NewNop()), srv
}

func TestAuthenticate(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/initSession" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "user_token user-token" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if got := r.Header.Get("App-Token"); got != "app-token" {
			t.Fatalf("unexpected app token: %s", got)
		}
		_, _ = w.Write([]byte(`{"session_token":"tok-1"}`))
	}))

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.token != "tok-1" {
		t.Fatalf("unexpected token: %s", session.token)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"missing token", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, _ := newTestSession(t, tc.handler)
			err := session.Authenticate(context.Background())
			if err == nil {
				t.Fatal("expected auth error")
			}
			if !apperrors.HasCode(err, apperrors.CodeAuth) {
				t.Fatalf("expected AUTH_FAILED, got %v", err)
			}
		})
	}
}

func TestOperationsRequireAuthentication(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call to %s", r.URL.Path)
	}))

	if _, err := session.SearchUsers(context.Background(), "doe"); err == nil {
		t.Fatal("expected contract violation")
	}
	if _, err := session.CreateTicket(context.Background(), TicketInput{}); err == nil {
		t.Fatal("expected contract violation")
	}
	if got := session.LoadEntities(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty catalog, got %d entries", len(got))
	}
}

// Catalog loads degrade to an empty map rather than an error, so the
// contract violation must at least be visible in the log.
func TestPreAuthCatalogLoadWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	session := NewSession(config.GLPIConfig{
		APIURL:    "http://127.0.0.1:0",
		AppToken:  "app-token",
		UserToken: "user-token",
	}, zap.New(core))

	if got := session.LoadEntities(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty entity catalog, got %d entries", len(got))
	}
	if got := session.LoadCategories(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty category catalog, got %d entries", len(got))
	}
	if logs.Len() != 2 {
		t.Fatalf("expected two warnings, got %d: %v", logs.Len(), logs.All())
	}
}

func TestSearchUsersFiltersClientSide(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/initSession":
			_, _ = w.Write([]byte(`{"session_token":"tok"}`))
		case "/User":
			if got := r.URL.Query().Get("is_requester"); got != "true" {
				t.Fatalf("unexpected is_requester: %s", got)
			}
			if got := r.URL.Query().Get("range"); got != "0-1000" {
				t.Fatalf("unexpected range: %s", got)
			}
			// 206 is what GLPI answers for range queries.
			w.WriteHeader(http.StatusPartialContent)
			_ = json.NewEncoder(w).Encode([]DirectoryUser{
				{ID: 1, Name: "jdoe", RealName: "Doe", FirstName: "John"},
				{ID: 2, Name: "asmith", RealName: "Smith", FirstName: "Anna"},
				{ID: 3, Name: "contact", RealName: "DOE Industries"},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	users, err := session.SearchUsers(context.Background(), "doe")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(users))
	}
	if users[0].ID != 1 || users[1].ID != 3 {
		t.Fatalf("unexpected matches: %+v", users)
	}
}

func TestSearchUsersTransportFailure(t *testing.T) {
	session, srv := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_token":"tok"}`))
	}))
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	srv.Close()

	if _, err := session.SearchUsers(context.Background(), "doe"); err == nil {
		t.Fatal("expected transport error to be distinguishable from zero matches")
	}
}

func TestLoadEntitiesCachesAndDegrades(t *testing.T) {
	calls := 0
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/initSession":
			_, _ = w.Write([]byte(`{"session_token":"tok"}`))
		case "/Entity":
			calls++
			_ = json.NewEncoder(w).Encode([]Entity{
				{ID: 5, Name: "ACME", CompleteName: "Root > CLIENTS_SOUS_CONTRAT > ACME"},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	first := session.LoadEntities(context.Background())
	second := session.LoadEntities(context.Background())
	if calls != 1 {
		t.Fatalf("expected a single catalog fetch, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 || first[5].Name != "ACME" {
		t.Fatalf("unexpected catalog: %+v", first)
	}
}

func TestLoadCategoriesFailureYieldsEmptyMap(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/initSession":
			_, _ = w.Write([]byte(`{"session_token":"tok"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if got := session.LoadCategories(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty map on failure, got %+v", got)
	}
}

func TestCreateTicketResponseShapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantID  int
		wantErr bool
	}{
		{"single object", `{"id":42}`, 42, false},
		{"one-element array", `[{"id":43,"message":"ok"}]`, 43, false},
		{"empty array", `[]`, 0, true},
		{"no id", `{"message":"ok"}`, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/initSession":
					_, _ = w.Write([]byte(`{"session_token":"tok"}`))
				case "/Ticket":
					var envelope struct {
						Input TicketInput `json:"input"`
					}
					if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
						t.Fatalf("decode envelope: %v", err)
					}
					if envelope.Input.Title != "Printer jam" {
						t.Fatalf("unexpected title: %s", envelope.Input.Title)
					}
					_, _ = w.Write([]byte(tc.body))
				default:
					t.Fatalf("unexpected path: %s", r.URL.Path)
				}
			}))
			if err := session.Authenticate(context.Background()); err != nil {
				t.Fatalf("authenticate: %v", err)
			}

			id, err := session.CreateTicket(context.Background(), TicketInput{
				Title:    "Printer jam",
				Content:  "body",
				EntityID: 1,
				Type:     TypeIncident,
				Status:   StatusOpen,
			})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if id != tc.wantID {
				t.Fatalf("expected id %d, got %d", tc.wantID, id)
			}
		})
	}
}

func TestAttachSolutionAndSetStatus(t *testing.T) {
	var solutionBody, statusBody map[string]any
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/initSession":
			_, _ = w.Write([]byte(`{"session_token":"tok"}`))
		case "/ITILSolution":
			_ = json.NewDecoder(r.Body).Decode(&solutionBody)
			_, _ = w.Write([]byte(`{"id":7}`))
		case "/Ticket/42":
			if r.Method != http.MethodPut {
				t.Fatalf("unexpected method: %s", r.Method)
			}
			_ = json.NewDecoder(r.Body).Decode(&statusBody)
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := session.AttachSolution(context.Background(), 42, "rebooted the print server"); err != nil {
		t.Fatalf("attach solution: %v", err)
	}
	input := solutionBody["input"].(map[string]any)
	if input["itemtype"] != "Ticket" || input["items_id"].(float64) != 42 || input["solutiontype_id"].(float64) != 1 {
		t.Fatalf("unexpected solution input: %+v", input)
	}

	if err := session.SetStatus(context.Background(), 42, StatusClosed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	statusInput := statusBody["input"].(map[string]any)
	if statusInput["status"].(float64) != StatusClosed {
		t.Fatalf("unexpected status input: %+v", statusInput)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	killCalls := 0
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/initSession":
			_, _ = w.Write([]byte(`{"session_token":"tok"}`))
		case "/killSession":
			killCalls++
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	session.Close(context.Background())
	session.Close(context.Background())
	if killCalls != 1 {
		t.Fatalf("expected exactly one killSession call, got %d", killCalls)
	}
}

func TestCloseWithoutAuthenticationIsNoOp(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call to %s", r.URL.Path)
	}))
	session.Close(context.Background())
}
