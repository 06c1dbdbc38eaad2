// Command issue-token signs a session token for a local user, creating the
// user first when a role is given. It is the bootstrap path for the first admin
// and for local testing against the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/config"
	"github.com/garyjia/travel-approval/internal/container"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
	"github.com/garyjia/travel-approval/internal/interfaces/http/auth"
	"github.com/garyjia/travel-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	userID := flag.Int64("user-id", 0, "id of an existing user to sign for")
	email := flag.String("email", "", "email of the user to sign for")
	roleName := flag.String("role", "", "create or update the user with this role (manager, pm, operations_ksa, operations_uae, admin)")
	firstName := flag.String("first-name", "", "first name used when creating the user")
	lastName := flag.String("last-name", "", "last name used when creating the user")
	flag.Parse()

	if *email == "" && *userID <= 0 {
		fmt.Fprintln(os.Stderr, "-email or -user-id is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := ensureUser(ctx, cfg.ToContainerConfig(), logger, *userID, *email, role.Role(*roleName), *firstName, *lastName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve user: %v\n", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	token, expiresAt, err := tokens.Issue(user.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "user %d <%s> role=%s expires=%s\n", user.ID, user.Email, user.Role, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}

func ensureUser(ctx context.Context, cfg *container.Config, logger *zap.Logger, userID int64, email string, r role.Role, firstName, lastName string) (*entity.User, error) {
	dbBundle, err := container.ProvideDatabase(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	defer dbBundle.DB.Close()

	repos, err := container.ProvideRepositories(dbBundle.DB, logger)
	if err != nil {
		return nil, err
	}

	if userID > 0 {
		user, err := repos.User.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("no user with id %d", userID)
		}
		return user, nil
	}

	if r == "" {
		user, err := repos.User.GetByEmail(ctx, entity.NormalizeEmail(email))
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("no user with email %s; pass -role to create one", email)
		}
		return user, nil
	}

	if !r.IsValid() {
		return nil, fmt.Errorf("unknown role %q", r)
	}

	user, err := repos.User.UpsertByEmail(ctx, &entity.User{
		Email:     entity.NormalizeEmail(email),
		FirstName: firstName,
		LastName:  lastName,
		Role:      r,
	})
	if err != nil {
		return nil, err
	}
	if user.Role != r {
		if err := repos.User.UpdateRole(ctx, user.ID, r); err != nil {
			return nil, err
		}
		user.Role = r
	}
	return user, nil
}
