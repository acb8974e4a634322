package main

import (
	"context"
	"fmt"

	"songbook/internal/app/users"
	"songbook/internal/config"
)

func bootstrapSuperuser(ctx context.Context, cfg config.BootstrapConfig, svc users.Service) error {
	if cfg.SuperuserEmail == "" {
		return nil
	}
	if err := svc.EnsureSuperuser(ctx, cfg.SuperuserEmail, cfg.SuperuserPassword); err != nil {
		return fmt.Errorf("seed %s: %w", cfg.SuperuserEmail, err)
	}
	return nil
}
