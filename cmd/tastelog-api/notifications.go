package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/config"
	"github.com/MarcoPoloResearchLab/tastelog/internal/logging"
	"github.com/MarcoPoloResearchLab/tastelog/internal/notifications"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newNotificationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect or reset the local notification inbox",
	}
	cmd.AddCommand(
		newInboxCommand("list", "Print notifications grouped by recency", listNotifications),
		newInboxCommand("reset", "Replace the inbox with the sample notifications", func(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error {
			return inbox.ResetToSamples(ctx)
		}),
		newInboxCommand("clear", "Remove every notification", func(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error {
			return inbox.ClearAll(ctx)
		}),
		newInboxCommand("mark-all-read", "Mark every notification as read", func(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error {
			return inbox.MarkAllRead(ctx)
		}),
		newInboxCommand("mark-all-unread", "Mark every notification as unread", func(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error {
			return inbox.MarkAllUnread(ctx)
		}),
	)
	return cmd
}

type inboxAction func(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error

func newInboxCommand(use, short string, action inboxAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInbox(cmd, action)
		},
	}
}

func withInbox(cmd *cobra.Command, action inboxAction) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, err := openStore(appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	_, inbox, err := notifications.New(notifications.Config{
		Store:   store,
		OwnerID: appConfig.UserID,
		Clock:   time.Now,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return action(ctx, cmd, inbox)
}

func listNotifications(ctx context.Context, cmd *cobra.Command, inbox *notifications.Inbox) error {
	items, err := inbox.LoadAll(ctx)
	if err != nil {
		return err
	}
	buckets := notifications.BucketByRecency(items, time.Now())
	out := cmd.OutOrStdout()
	for _, group := range []struct {
		name  string
		items []notifications.Notification
	}{
		{"Today", buckets.Today},
		{"This week", buckets.ThisWeek},
		{"Earlier", buckets.Earlier},
	} {
		if len(group.items) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s\n", group.name)
		for _, item := range group.items {
			marker := " "
			if !item.IsRead {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-28s %-14s %s\n", marker, item.ID, item.Type, item.Description)
		}
	}
	fmt.Fprintf(out, "%d notifications, %d unread\n", len(items), notifications.CountUnread(items))
	return nil
}
