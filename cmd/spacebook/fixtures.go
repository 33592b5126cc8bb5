package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"spacebook/internal/app/dto"
	domainspace "spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/infra/config"
	"spacebook/internal/pkg/errs"
)

type userFixture struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type spaceFixture struct {
	ID             string                `json:"id"`
	OwnerID        string                `json:"ownerId"`
	StaffIDs       []string              `json:"staffIds"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Timezone       string                `json:"timezone"`
	OperatingHours dto.OperatingHoursDTO `json:"operatingHours"`
	Pricing        dto.PricingDTO        `json:"pricing"`
}

// loadFixtures seeds users first so fixture spaces can name their owners.
// Records that already exist are left untouched.
func (a *application) loadFixtures(ctx context.Context, cfg config.FixtureConfig, logger *slog.Logger) error {
	var users []userFixture
	if err := readFixtures(cfg.UsersPath, &users, logger); err != nil {
		return err
	}
	now := time.Now()
	for _, fx := range users {
		if _, err := a.users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(fx.Email))); err == nil {
			continue
		} else if !errs.Is(err, errs.ErrNotFound) {
			return err
		}
		hash, err := a.hasher.Hash(fx.Password)
		if err != nil {
			return errs.Wrapf(err, "hash password for %s", fx.Email)
		}
		roles := make([]domainuser.Role, 0, len(fx.Roles))
		for _, r := range fx.Roles {
			roles = append(roles, domainuser.Role(r))
		}
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			PasswordHash: hash,
			Roles:        roles,
			CreatedAt:    now,
		})
		if err != nil {
			return errs.Wrapf(err, "user fixture %s", fx.ID)
		}
		if err := a.users.Save(ctx, user); err != nil {
			return errs.Wrapf(err, "save user fixture %s", fx.ID)
		}
	}

	var spaces []spaceFixture
	if err := readFixtures(cfg.SpacesPath, &spaces, logger); err != nil {
		return err
	}
	loaded := 0
	for _, fx := range spaces {
		if _, err := a.spaces.ByID(ctx, domainspace.SpaceID(fx.ID)); err == nil {
			continue
		} else if !errs.Is(err, errs.ErrNotFound) {
			return err
		}
		sp, err := domainspace.NewSpace(domainspace.CreateParams{
			ID:             domainspace.SpaceID(fx.ID),
			OwnerID:        domainspace.OwnerID(fx.OwnerID),
			StaffIDs:       fx.StaffIDs,
			Name:           fx.Name,
			Description:    fx.Description,
			Timezone:       fx.Timezone,
			OperatingHours: domainspace.OperatingHours{Open: fx.OperatingHours.Open, Close: fx.OperatingHours.Close},
			Pricing:        fx.Pricing.ToDomain(),
			Now:            now,
		})
		if err != nil {
			return errs.Wrapf(err, "space fixture %s", fx.ID)
		}
		if err := a.spaces.Save(ctx, sp); err != nil {
			return errs.Wrapf(err, "save space fixture %s", fx.ID)
		}
		loaded++
	}
	if len(users) > 0 || len(spaces) > 0 {
		logger.Info("fixtures loaded", "users", len(users), "spaces", loaded)
	}
	return nil
}

func readFixtures(path string, out any, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return errs.Wrapf(err, "read fixtures %s", path)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrapf(err, "decode fixtures %s", path)
	}
	return nil
}
