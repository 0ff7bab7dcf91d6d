package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Bars-377/web-chat/internal/infra/config"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	"github.com/Bars-377/web-chat/internal/infra/transport/http"
	"github.com/Bars-377/web-chat/internal/repo/sqlite"
	"github.com/Bars-377/web-chat/internal/repo/store"
	"github.com/Bars-377/web-chat/internal/svc/authsvc"
	"github.com/Bars-377/web-chat/internal/svc/chatsvc"
	"github.com/Bars-377/web-chat/internal/svc/pagesvc"
)

const (
	appName = "webchat"
	svcName = "chatsvc"
)

type Config struct {
	config.EnvConfig

	Log      logging.LoggerConfig        `envPrefix:"LOG_"`
	DB       sqlite.Config               `envPrefix:"DB_"`
	Auth     authsvc.AuthConfig          `envPrefix:"AUTH_"`
	AuthHTTP authsvc.HTTPTransportConfig `envPrefix:"AUTH_HTTP_"`
	Chat     chatsvc.HTTPTransportConfig `envPrefix:"CHAT_"`
	Pages    pagesvc.HTTPTransportConfig `envPrefix:"PAGES_"`
	HTTP     http.HTTPTransportConfig    `envPrefix:"HTTP_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.chatsvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	s, err := store.SQLiteStoreFactory(cfg.DB)(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	tokens, err := authsvc.NewJWTTokenCodec(cfg.Auth.Token)
	if err != nil {
		return fmt.Errorf("new token codec: %w", err)
	}

	authSvc := authsvc.NewAuthService(s, tokens, cfg.Auth)
	authn := authsvc.NewSessionAuthenticator(tokens, s, cfg.AuthHTTP.CookieName)
	chatSvc := chatsvc.NewChatService(s)

	if err := http.ListenAndServe(ctx, cfg.HTTP,
		authsvc.NewHTTPTransport(authSvc, cfg.AuthHTTP),
		chatsvc.NewHTTPTransport(chatSvc, authn, cfg.Chat),
		pagesvc.NewHTTPTransport(authn, cfg.Pages),
	); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
