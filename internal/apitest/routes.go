package apitest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server is an in-process fake of the game backend.
type Server struct {
	*httptest.Server
	Broker *Broker
	state  *State
}

// NewServer starts a fake backend and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{Broker: NewBroker(zap.NewNop()), state: NewState()}
	s.Server = httptest.NewServer(s.SetupRoutes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/ws/websocket", s.Broker.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", s.listRooms)
		r.Post("/create-room", s.createRoom)
		r.Post("/join-room", s.joinRoom)
		r.Post("/exit-room", s.exitRoom)
		r.Post("/start-game", s.startGame)
		r.Post("/start-real-game", s.startRealGame)

		r.Route("/room/{roomID}", func(r chi.Router) {
			r.Get("/", s.getRoom)
			r.Post("/select-avatar", s.selectAvatar)
			r.Get("/players", s.players)
			r.Get("/roles", s.roles)
			r.Post("/assign-roles", s.assignRoles)
			r.Post("/start-vote", s.startVote)
			r.Post("/vote", s.vote)
			r.Post("/vote-timeup", s.voteTimeUp)
			r.Get("/vote-state", s.voteState)
			r.Get("/vote-result", s.voteResult)
			r.Get("/mission-state", s.missionState)
			r.Post("/mission-result", s.missionResult)
			r.Get("/skill-state", s.skillState)
			r.Post("/skill-finish", s.skillFinish)
			r.Get("/record", s.getRecord)
			r.Post("/end-game", s.endGame)
		})

		r.Post("/skill/civilian-ultimate", s.civilianUltimate)
		r.Post("/skill/{skill}", s.useSkill)

		r.Get("/game-records/stats/{player}", s.stats)
		r.Get("/game-records/player/{player}", s.playerRecords)
	})

	r.Post("/auth/do-login", s.login)
	r.Post("/auth/do-register", s.register)
	r.Get("/auth/password-hint", s.passwordHint)
	r.Post("/auth/change-password", s.changePassword)
	return r
}

// Request is one call the fake received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.state.mu.Lock()
		s.state.requests = append(s.state.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		s.state.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns every call matching method and path so far.
func (s *Server) Requests(method, path string) []Request {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	var out []Request
	for _, r := range s.state.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// WaitRequest polls until method+path has been called at least n times.
func (s *Server) WaitRequest(method, path string, n int, within time.Duration) []Request {
	deadline := time.Now().Add(within)
	for {
		got := s.Requests(method, path)
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
}
