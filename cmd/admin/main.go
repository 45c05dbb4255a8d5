// Command admin provisions administrator accounts, which cannot be created
// through public registration.
//
//	go run ./cmd/admin -email ops@example.com -name "Ops" -password '...'
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/config"
	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/rafflywin-backend/internal/repositories/mongodb"
	mongodb "github.com/ArowuTest/rafflywin-backend/pkg/mongodb"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "Administrator", "full name")
	password := flag.String("password", "", "initial password (min 8 characters)")
	flag.Parse()

	if *email == "" || len(*password) < 8 {
		slog.Error("Both -email and a -password of at least 8 characters are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(*email)),
		FullName:  *name,
		Role:      models.RoleAdmin,
		Password:  string(hash),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := mongorepo.NewUserRepository(db).Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			slog.Error("A user with this email already exists", "email", user.Email)
		} else {
			slog.Error("Failed to create admin", "error", err)
		}
		os.Exit(1)
	}

	slog.Info("Admin created", "userId", user.ID.Hex(), "email", user.Email)
}
