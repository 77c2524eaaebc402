package router

import (
	"github.com/userdesk/userdesk/internal/application"
	"github.com/userdesk/userdesk/internal/container"
	"github.com/userdesk/userdesk/internal/domain/repository"
	pginfra "github.com/userdesk/userdesk/internal/infrastructure/postgres"
	handlers "github.com/userdesk/userdesk/internal/interface/http"
	"github.com/userdesk/userdesk/internal/router/modules"
)

type moduleDeps struct {
	Repo           repository.AccountRepository
	Index          *application.SearchIndex
	AccountService *application.AccountService
	RosterService  *application.RosterService
}

func buildDeps() moduleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	repo := pginfra.NewAccountRepository(container.GetPGPool())
	index := application.NewSearchIndex(container.GetES(), cfg.ESAccountsIndex, logger)

	// Keep the interface nil when no publisher was constructed so the mail
	// path degrades to a no-op instead of calling through a nil client.
	var pub application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}

	accountSvc := application.NewAccountService(
		repo,
		container.GetSessions(),
		container.GetTokens(),
		pub,
		index,
		logger,
		cfg,
	)
	rosterSvc := application.NewRosterService(
		repo,
		container.GetSessions(),
		index,
		logger,
		cfg,
	)

	return moduleDeps{Repo: repo, Index: index, AccountService: accountSvc, RosterService: rosterSvc}
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	deps := buildDeps()
	cfg := container.GetConfig()
	logger := container.GetLogger()

	accountHandler := handlers.NewAccountHandler(deps.AccountService, logger, cfg.CookieDomain, cfg.CookieSecure)
	usersHandler := handlers.NewUsersHandler(deps.RosterService, logger, cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewAccountModule(accountHandler))
	r.Add(modules.NewUsersModule(usersHandler))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
