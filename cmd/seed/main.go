// Command seed creates a user account so the API has someone to log in as.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Skotchmaster/shop_api/internal/config"
	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/service"
)

func main() {
	username := flag.String("username", "", "account name")
	password := flag.String("password", "", "account password")
	flag.Parse()

	config.LoadEnvFile(".env")
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 30*time.Second)
	defer cancel()

	if err := seed(ctx, cfg, *username, *password); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.Config, username, password string) error {
	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logging.FromContext(ctx).Error("db close failed", "error", err)
		}
	}()

	svc := &service.AuthService{Users: repo.NewGormRepo(gdb)}
	created, err := svc.SeedUser(ctx, username, password)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("user %q created\n", username)
	} else {
		fmt.Printf("user %q already exists\n", username)
	}
	return nil
}
