// Package supabasetest is an in-memory twin of the hosted backend's REST
// and auth APIs for tests. It implements the subset of PostgREST and GoTrue
// the application uses, with the same status codes and error bodies.
package supabasetest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"aph/internal/adapters/supabase"
)

// AnonKey is the only api key the twin accepts.
const AnonKey = "test-anon-key"

// Server is a running twin. Zero state; create with New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string][]map[string]any
	unique   map[string][]string
	faults   map[string]int
	accounts map[string]*account // by id
	byEmail  map[string]string
	access   map[string]string // access token -> account id
	refresh  map[string]string // refresh token -> account id
	recover  []string
	secret   []byte

	requests atomic.Int64
}

type account struct {
	id       string
	email    string
	password string
	meta     map[string]any
	created  string
}

// New starts a twin and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tables: map[string][]map[string]any{},
		unique: map[string][]string{
			"users":          {"email"},
			"payments":       {"transaction_id"},
			"admin_settings": {"key"},
		},
		faults:   map[string]int{},
		accounts: map[string]*account{},
		byEmail:  map[string]string{},
		access:   map[string]string{},
		refresh:  map[string]string{},
		secret:   []byte("supabasetest-jwt-secret"),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// NewClient returns a client pointed at the twin.
func (s *Server) NewClient() *supabase.Client {
	return supabase.New(s.URL, AnonKey, supabase.WithHTTPClient(s.Server.Client()))
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Use(s.requireAPIKey)

	r.Route("/rest/v1", func(r chi.Router) {
		r.Use(s.faultInjection)
		r.Get("/{table}", s.handleSelect)
		r.Post("/{table}", s.handleInsert)
		r.Patch("/{table}", s.handleUpdate)
		r.Delete("/{table}", s.handleDelete)
	})

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/signup", s.handleSignUp)
		r.Post("/token", s.handleToken)
		r.Get("/user", s.handleUser)
		r.Post("/logout", s.handleLogout)
		r.Post("/recover", s.handleRecover)
	})
	return r
}

// Requests returns how many requests the twin has served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Fail makes every method request on table answer status until Heal.
func (s *Server) Fail(method, table string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+table] = status
}

// Heal clears all injected failures.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]int{}
}

// Rows returns a copy of table's rows in insertion order.
func (s *Server) Rows(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, copyRow(row))
	}
	return out
}

// Seed inserts rows directly, bypassing constraints.
func (s *Server) Seed(table string, rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], copyRow(row))
	}
}

// Recoveries lists the emails a password reset was requested for.
func (s *Server) Recoveries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recover...)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != AnonKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) faultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := chi.URLParam(r, "table")
		if table == "" {
			// URL params are not resolved yet at this level
			table = lastSegment(r.URL.Path)
		}
		s.mu.Lock()
		status, ok := s.faults[r.Method+" "+table]
		s.mu.Unlock()
		if ok {
			writeJSON(w, status, map[string]any{"code": "XX000", "message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
