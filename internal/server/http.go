package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"swapscan/internal/config"
	"swapscan/internal/store"
)

// Server serves the GraphQL query API.
type Server struct {
	st      *store.Store
	http    *http.Server
	log     zerolog.Logger
	started time.Time
}

// NewServer wires the schema, the resolver and the health route.
func NewServer(st *store.Store, contest *config.ContestProfile, port string, log zerolog.Logger) (*Server, error) {
	schema, err := graphql.ParseSchema(Schema, NewResolver(st, contest))
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}

	s := &Server{st: st, log: log, started: time.Now()}

	r := mux.NewRouter()
	r.Handle("/graphql", s.withRequestLoaders(&relay.Handler{Schema: schema})).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: cors.AllowAll().Handler(r),
	}
	return s, nil
}

// withRequestLoaders installs a fresh set of dataloaders per request,
// so batching and caching never cross request boundaries.
func (s *Server) withRequestLoaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withLoaders(r.Context(), newLoaders(s.st))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.st.Ping(r.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("graphql server listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
