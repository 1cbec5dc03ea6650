package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
)

const (
	defaultAdminUsername = "admin"
	seedPasswordBytes    = 16
)

// SeedAdmin creates the first account when the users table is empty.
//
// The password comes from security.admin.password; when that is empty a
// random one is generated and logged once. It returns the generated
// password, or "" when nothing was generated.
func SeedAdmin(ctx context.Context, users UserRepository, admin config.AdminConfig, logger *slog.Logger) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	username := admin.Username
	if username == "" {
		username = defaultAdminUsername
	}

	password, generated := admin.Password, ""
	if password == "" {
		buf := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating admin password: %w", err)
		}
		password = hex.EncodeToString(buf)
		generated = password
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing admin password: %w", err)
	}

	err = users.Create(ctx, &User{
		Username:     username,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return "", fmt.Errorf("creating admin: %w", err)
	}

	if generated != "" {
		logger.Warn("admin account created with a generated password",
			"username", username,
			"password", generated,
			"action_required", "set security.admin.password or change this password",
		)
	} else {
		logger.Info("admin account created", "username", username)
	}
	return generated, nil
}
