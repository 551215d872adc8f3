package cli

import (
	"context"
	"flag"
	"fmt"
	"time"
)

func newAssignQuestsCommand() *Command {
	return &Command{
		Name:        "assign-quests",
		Description: "Assign today's quests to recently active users and exit",
		Flags:       flag.NewFlagSet("assign-quests", flag.ContinueOnError),
		Run: func(args []string) error {
			return runOnce("quest assignment", func(ctx context.Context, a *app) error {
				return a.assignQuests(ctx)
			})
		},
	}
}

func newPurgeUnverifiedCommand() *Command {
	return &Command{
		Name:        "purge-unverified",
		Description: "Delete accounts whose verification window has lapsed and exit",
		Flags:       flag.NewFlagSet("purge-unverified", flag.ContinueOnError),
		Run: func(args []string) error {
			return runOnce("unverified account purge", func(ctx context.Context, a *app) error {
				return a.purgeUnverified(ctx)
			})
		},
	}
}

// runOnce runs a scheduled job a single time, for backfills and manual runs
func runOnce(name string, job func(context.Context, *app) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, logger, cm, rdb, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cm.Close()
	if rdb != nil {
		defer rdb.Close()
	}

	a, err := newApp(cfg, logger.Entry(), resources{primary: cm.Primary(), replica: cm.Replica(), redis: rdb}, nil)
	if err != nil {
		return err
	}

	logger.Infof("Running %s", name)
	if err := job(ctx, a); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	logger.Infof("%s completed", name)
	return nil
}
