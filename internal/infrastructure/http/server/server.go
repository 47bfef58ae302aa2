package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithandler "simpleit/simpledfe_core/internal/adapters/http/audit"
	authhandler "simpleit/simpledfe_core/internal/adapters/http/auth"
	documentohandler "simpleit/simpledfe_core/internal/adapters/http/documento"
	fornecedorhandler "simpleit/simpledfe_core/internal/adapters/http/fornecedor"
	healthhandler "simpleit/simpledfe_core/internal/adapters/http/health"
	reporthandler "simpleit/simpledfe_core/internal/adapters/http/report"
	"simpleit/simpledfe_core/internal/infrastructure/config"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
)

// reportTimeout bounds the tax report, which decodes every stored XML in
// the period.
const reportTimeout = 5 * time.Minute

// Server wires the HTTP surface: router, middleware chain and handlers.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	auth       *middleware.JWTAuthenticator
}

// Options carries the wired handlers and the middleware dependencies.
type Options struct {
	HTTP   config.HTTPSettings
	Logger *slog.Logger
	Auth   *middleware.JWTAuthenticator

	AuthHandler       *authhandler.Handler
	DocumentoHandler  *documentohandler.Handler
	FornecedorHandler *fornecedorhandler.Handler
	ReportHandler     *reporthandler.Handler
	AuditHandler      *audithandler.Handler
	HealthHandler     *healthhandler.Handler
}

// New creates the server and mounts all routes.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("authenticator is required")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(opts.Auth.Middleware)

	r.Get("/health", opts.HealthHandler.Status)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", opts.AuthHandler.Register)
		r.Post("/login", opts.AuthHandler.Login)
		r.Get("/me", opts.AuthHandler.Me)
		r.Post("/logout", opts.AuthHandler.Logout)
		r.Post("/forgot-password", opts.AuthHandler.ForgotPassword)
		r.Post("/reset-password", opts.AuthHandler.ResetPassword)
	})

	r.Route("/api/{tipo:nfse|nfe|cte}", func(r chi.Router) {
		r.Get("/", opts.DocumentoHandler.List)
		r.Get("/{id}/xml", opts.DocumentoHandler.DownloadXML)
	})
	r.Post("/api/nfse/import", opts.DocumentoHandler.Import)
	r.Get("/api/nfse/{id}/danfse", opts.DocumentoHandler.Danfse)
	r.Get("/api/dashboard/stats", opts.DocumentoHandler.Stats)

	r.Route("/api/fornecedores", func(r chi.Router) {
		r.Get("/", opts.FornecedorHandler.List)
		r.Post("/{id}/pre-cadastro", opts.FornecedorHandler.PreCadastro)
		r.Post("/verificar-erp", opts.FornecedorHandler.VerificarERP)
		r.Get("/erp-log/{cnpj}", opts.FornecedorHandler.ERPLog)
	})

	r.With(middleware.ExtendedTimeout(reportTimeout)).
		Post("/api/relatorios/nfse-tributos", opts.ReportHandler.NFSeTributos)

	r.Get("/api/audit-logs", opts.AuditHandler.List)

	srv := &http.Server{
		Addr:         opts.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	return &Server{log: opts.Logger, httpServer: srv, auth: opts.Auth}, nil
}

// Handler exposes the router, used by the HTTP tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases middleware resources.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}
