package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Bars-377/web-chat/internal/infra/config"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	"github.com/Bars-377/web-chat/internal/svc/chatsvc/chatclient"
)

const (
	appName = "webchat"
	svcName = "chatclient"
)

// AccountConfig names the user the client acts as.
type AccountConfig struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`

	// Email is only needed together with Register
	Email string `env:"EMAIL" default:""`

	// Register creates the account before logging in
	Register bool `env:"REGISTER" default:"false"`
}

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig        `envPrefix:"LOG_"`
	Client  chatclient.HTTPClientConfig `envPrefix:"CLIENT_"`
	Account AccountConfig               `envPrefix:"ACCOUNT_"`
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
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) error {
	log := logging.GetLogger("cmd.chatclient")

	client, err := chatclient.NewHTTPClient(cfg.Client, nil)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}

	account := cfg.Account

	if account.Register {
		if _, err := client.Register(ctx, account.Username, account.Email, account.Password); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		log.InfoContext(ctx, "registered", "username", account.Username)
	}

	token, err := client.Login(ctx, account.Username, account.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	history, err := client.History(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	for _, msg := range history {
		fmt.Printf("[%s] %s\n", msg.Timestamp.Local().Format("2006-01-02 15:04:05"), msg.EchoText())
	}

	conv, err := client.Connect(ctx, account.Username, token.AccessToken)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conv.Close()

	stop := context.AfterFunc(ctx, func() { _ = conv.Leave() })
	defer stop()

	go func() {
		lines := bufio.NewScanner(os.Stdin)
		for lines.Scan() {
			if err := conv.Send(lines.Text()); err != nil {
				log.WarnContext(ctx, "send failed", "error", err)

				return
			}
		}

		_ = conv.Leave()
	}()

	for {
		text, err := conv.Receive()
		if errors.Is(err, chatclient.ErrClosed) {
			return nil
		} else if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		fmt.Println(text)
	}
}
