package main

import (
	"context"
	"fmt"
	"time"

	"github.com/doorstep-banking/internal/bootstrap"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/doorstep-banking/internal/logger"
	"github.com/spf13/cobra"
)

var resyncTimeout time.Duration

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Reconcile agent workloads and histories with every closed service request",
	RunE:  runResync,
}

func init() {
	resyncCmd.Flags().DurationVar(&resyncTimeout, "timeout", 10*time.Minute, "abort the pass after this long")
}

func runResync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), resyncTimeout)
	defer cancel()

	infra, err := bootstrap.Open(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer infra.Close(context.Background())

	svcs := lifecycle.CreateServices(infra.Dependencies(cfg, nil), log, cfg)

	repaired, err := svcs.Repair.ResyncAll(ctx, repair.TriggerCLI)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "resync: repaired %d service requests\n", repaired)
	return nil
}
