package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/analytics"
	"github.com/codebugsleuth/bughunter/internal/analyzer"
	"github.com/codebugsleuth/bughunter/internal/billing"
	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/db"
	"github.com/codebugsleuth/bughunter/internal/http/api"
	"github.com/codebugsleuth/bughunter/internal/mailer"
	"github.com/codebugsleuth/bughunter/internal/store"
	"github.com/codebugsleuth/bughunter/internal/subscription"
)

// Migrate opens the database and applies schema migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and runs
// until the context is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	if jwtCfg.Secret == "" {
		return fmt.Errorf("app: jwt secret is required (set %s or jwt.secret)", config.EnvJWTSecret)
	}
	stripeCfg, errStripe := config.LoadStripeConfig(configPath)
	if errStripe != nil {
		return errStripe
	}
	analyzerCfg, errAnalyzer := config.LoadAnalyzerConfig(configPath)
	if errAnalyzer != nil {
		return errAnalyzer
	}
	mailchimpCfg, errMailchimp := config.LoadMailchimpConfig(configPath)
	if errMailchimp != nil {
		return errMailchimp
	}
	serverCfg, errServer := config.LoadServerConfig(configPath)
	if errServer != nil {
		return errServer
	}

	users := store.NewUserStore(conn)
	usage := store.NewUsageStore(conn)
	payments := store.NewPaymentStore(conn)
	analyses := store.NewAnalysisStore(conn)

	mail := mailer.New(mailchimpCfg)
	if mail.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if errPing := mail.Ping(pingCtx); errPing != nil {
			log.WithError(errPing).Warn("mailchimp ping failed, email delivery may be degraded")
		}
		cancel()
	}

	subs := subscription.NewService(users, usage, mail)
	bill := billing.NewService(users, payments, subs, stripeCfg)
	engine := analyzer.New(analyzerCfg)
	stats := analytics.NewService(users, payments, analyses)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, api.Deps{
		DB:        conn,
		Users:     users,
		Analyses:  analyses,
		Analyzer:  engine,
		Subs:      subs,
		Billing:   bill,
		Mailer:    mail,
		Analytics: stats,
		JWT:       jwtCfg,
		Server:    serverCfg,
	})

	addr := fmt.Sprintf(":%d", port)
	log.Infof("starting server on %s (environment=%s)", addr, serverCfg.Environment)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}
