package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/paperledger/link-service/driver"
	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/internal/config"
	"github.com/paperledger/link-service/linking"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	verifier identity.Verifier
	linker   *linking.Manager
	driver   *driver.Driver
	repos    linking.Repos
}

func New(config config.Config, verifier identity.Verifier, linker *linking.Manager, linkDriver *driver.Driver, repos linking.Repos) (*Server, error) {
	if verifier == nil {
		return nil, fmt.Errorf("[Server New] identity verifier is required")
	}
	if linker == nil {
		return nil, fmt.Errorf("[Server New] linking manager is required")
	}
	if linkDriver == nil {
		return nil, fmt.Errorf("[Server New] link driver is required")
	}
	if repos.Tenants == nil || repos.Credentials == nil {
		return nil, fmt.Errorf("[Server New] tenant and credential repos are required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		verifier: verifier,
		linker:   linker,
		driver:   linkDriver,
		repos:    repos,
	}
	s.env = config.GetEnv()

	if err := s.seedDevData(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] failed to seed dev data: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}
