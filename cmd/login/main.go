// Package main создает файл сессии пользовательского аккаунта для поиска.
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

	"autoapprove/internal/config"
	"autoapprove/pkg/logger"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// terminalAuth запрашивает недостающие данные входа в терминале
type terminalAuth struct {
	phone  string
	reader *bufio.Reader
}

func (a terminalAuth) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSpace(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (a terminalAuth) Phone(_ context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompt("Phone number: ")
}

func (a terminalAuth) Password(_ context.Context) (string, error) {
	return a.prompt("2FA password: ")
}

func (a terminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompt("Login code: ")
}

func (a terminalAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a terminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported, use an existing account")
}

func main() {
	log := logger.New(logger.FromEnv())

	cfg, err := config.LoadSearch()
	if err != nil {
		log.Fatal("Failed to load search configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		Logger:         log.Named("mtproto"),
	})

	flow := auth.NewFlow(terminalAuth{phone: cfg.Phone, reader: bufio.NewReader(os.Stdin)}, auth.SendCodeOptions{})

	err = client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("failed to authorize: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current user: %w", err)
		}

		log.Info("Search session authorized",
			zap.Int64("user_id", self.ID),
			zap.String("username", self.Username),
			zap.String("session_file", cfg.SessionFile))
		return nil
	})
	if err != nil {
		log.Fatal("Login failed", zap.Error(err))
	}
}
