// Command storefront-auth serves the storefront authentication API.
//
//	storefront-auth                   run the HTTP server
//	storefront-auth hash-password PW  print an Argon2id hash for seeding users
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal/app"
	"github.com/Arunava9732/Arunava45-sub000/internal/config"
	"github.com/Arunava9732/Arunava45-sub000/internal/logger"
	"github.com/Arunava9732/Arunava45-sub000/password"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, *cfg, log)
	if err != nil {
		log.Fatal("create app", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}
}

func hashPassword(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: storefront-auth hash-password <password>")
		return 2
	}
	pc := storeauth.DefaultConfig().Password
	h, err := password.NewHasher(password.Config{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	hash, err := h.Hash(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
