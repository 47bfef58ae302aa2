package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	auditpg "simpleit/simpledfe_core/internal/adapters/audit/postgres"
	cnpjhttp "simpleit/simpledfe_core/internal/adapters/cnpj/http"
	documentopg "simpleit/simpledfe_core/internal/adapters/documento/postgres"
	"simpleit/simpledfe_core/internal/adapters/email/resend"
	"simpleit/simpledfe_core/internal/adapters/erp/soap"
	"simpleit/simpledfe_core/internal/adapters/erp/webhook"
	fornecedorpg "simpleit/simpledfe_core/internal/adapters/fornecedor/postgres"
	audithandler "simpleit/simpledfe_core/internal/adapters/http/audit"
	authhandler "simpleit/simpledfe_core/internal/adapters/http/auth"
	documentohandler "simpleit/simpledfe_core/internal/adapters/http/documento"
	fornecedorhandler "simpleit/simpledfe_core/internal/adapters/http/fornecedor"
	healthhandler "simpleit/simpledfe_core/internal/adapters/http/health"
	reporthandler "simpleit/simpledfe_core/internal/adapters/http/report"
	userpg "simpleit/simpledfe_core/internal/adapters/user/postgres"
	appaudit "simpleit/simpledfe_core/internal/application/audit"
	appdanfse "simpleit/simpledfe_core/internal/application/danfse"
	appdocumento "simpleit/simpledfe_core/internal/application/documento"
	appfornecedor "simpleit/simpledfe_core/internal/application/fornecedor"
	apphealth "simpleit/simpledfe_core/internal/application/health"
	appreport "simpleit/simpledfe_core/internal/application/report"
	appuser "simpleit/simpledfe_core/internal/application/user"
	"simpleit/simpledfe_core/internal/core/audit"
	"simpleit/simpledfe_core/internal/core/email"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
	"simpleit/simpledfe_core/internal/infrastructure/config"
	"simpleit/simpledfe_core/internal/infrastructure/database"
	infrahttp "simpleit/simpledfe_core/internal/infrastructure/http"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
	"simpleit/simpledfe_core/internal/infrastructure/http/server"
	"simpleit/simpledfe_core/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Application store: accounts and audit trails, owned by this service.
	pool, err := database.NewPool(ctx, dbConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("connect application store: %w", err)
	}
	defer pool.Close()
	if err := database.RunMigrations(ctx, pool, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Application store ready", "database", cfg.Database.Database)

	// Document store: captured NFSe/NFe/CTe rows and the pending-vendor
	// queue, shared with the capture process.
	docDB, err := database.NewDocStore(ctx, dbConfig(cfg.DocDatabase))
	if err != nil {
		return fmt.Errorf("connect document store: %w", err)
	}
	defer docDB.Close()
	if err := database.EnsureDocSchema(ctx, docDB, log); err != nil {
		return fmt.Errorf("ensure document schema: %w", err)
	}

	userRepo := userpg.NewRepository(pool, log)
	actionRepo := auditpg.NewActionRepository(pool, log)
	docRepo := documentopg.NewRepository(docDB, log)
	fornRepo := fornecedorpg.NewRepository(docDB, log)

	var providerAudit audit.Repository
	if cfg.Audit.Enabled {
		providerAudit = auditpg.NewRepositoryWithLogger(pool, log)
	} else {
		log.Info("Provider audit trail disabled by configuration")
	}

	debugBuf := cache.NewDebugBuffer(cfg.ERP.DebugBufferSize)

	// Every call to the TOTVS SOAP endpoint goes through the traced
	// client so the exchange lands in provider_audit_log.
	erpTransport := infrahttp.NewTracedClient(&infrahttp.TracedClientConfig{
		Timeout:         cfg.ERP.Timeout,
		AuditEnabled:    cfg.Audit.Enabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
	}, log, providerAudit, "totvs")

	if !cfg.ERP.Enabled {
		log.Warn("ERP integration disabled, pre-registrations will fail until configured")
	}
	erpClient := soap.NewClient(soap.Config{
		Endpoint:    cfg.ERP.SoapURL,
		Username:    cfg.ERP.Username,
		Password:    cfg.ERP.Password,
		CodColigada: cfg.ERP.CodColigada,
		Timeout:     cfg.ERP.Timeout,
	}, erpTransport, debugBuf, log)
	erpVerifier := webhook.NewClient(cfg.ERP.WebhookURL, cfg.ERP.Timeout, log)

	receitaTransport := infrahttp.NewTracedClient(&infrahttp.TracedClientConfig{
		Timeout:         cfg.ReceitaWS.Timeout,
		AuditEnabled:    cfg.Audit.Enabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
		MaxConnsPerHost: cfg.ReceitaWS.MaxConcurrent,
	}, log, providerAudit, "receitaws")
	cnpjClient := cnpjhttp.NewClientWithTransport(cfg.ReceitaWS.BaseURL, receitaTransport, cfg.ReceitaWS.MaxConcurrent, log)

	var mailer email.Sender
	if cfg.Email.Enabled {
		mailer = resend.NewClient(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From, log)
	} else {
		log.Info("Outbound email disabled, password resets will be logged only")
	}

	userSvc := appuser.NewService(userRepo, mailer, []byte(cfg.Auth.JWTSecret), log)
	auditSvc := appaudit.NewService(actionRepo, log)
	danfseSvc := appdanfse.NewService(log)
	documentoSvc := appdocumento.NewService(docRepo, danfseSvc, log)
	fornecedorSvc := appfornecedor.NewService(fornRepo, cnpjClient, erpClient, erpVerifier, debugBuf, log)
	reportSvc := appreport.NewService(docRepo, danfseSvc, cfg.Report.Workers, log)
	healthSvc := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})

	authenticator, err := middleware.NewJWTAuthenticator(cfg.Auth, log)
	if err != nil {
		return fmt.Errorf("create authenticator: %w", err)
	}

	srv, err := server.New(server.Options{
		HTTP:   cfg.HTTP,
		Logger: log,
		Auth:   authenticator,

		AuthHandler:       authhandler.NewHandler(userSvc, auditSvc, log),
		DocumentoHandler:  documentohandler.NewHandler(documentoSvc, auditSvc, log),
		FornecedorHandler: fornecedorhandler.NewHandler(fornecedorSvc, auditSvc, log),
		ReportHandler:     reporthandler.NewHandler(reportSvc, log),
		AuditHandler:      audithandler.NewHandler(auditSvc, log),
		HealthHandler:     healthhandler.NewHandler(healthSvc),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port, "environment", cfg.App.Environment)
	return srv.Run(ctx, cfg.HTTP.ShutdownTimeout)
}

func dbConfig(s config.DatabaseSettings) database.Config {
	return database.Config{
		Host:            s.Host,
		Port:            s.Port,
		Database:        s.Database,
		User:            s.User,
		Password:        s.Password,
		SSLMode:         s.SSLMode,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}
