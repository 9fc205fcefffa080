package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Fullex26/noticehook/internal/config"
	"github.com/Fullex26/noticehook/internal/daemon"
	"github.com/Fullex26/noticehook/internal/setup"
	"github.com/Fullex26/noticehook/internal/store"
	"github.com/Fullex26/noticehook/pkg/models"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "noticehook",
		Short: "🔔 noticehook — forward notice messages to a webhook",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath, "config file path")

	root.AddCommand(
		runCmd(),
		sendCmd(),
		testCmd(),
		statusCmd(),
		typesCmd(),
		setupCmd(),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	daemon.LogLevel.Set(cfg.Log.SlogLevel())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &daemon.LogLevel,
	})))
	return cfg, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the noticehook daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, cfgPath)
			if err != nil {
				return fmt.Errorf("initializing daemon: %w", err)
			}

			return d.Run()
		},
	}
}

func sendCmd() *cobra.Command {
	var n models.Notice
	var msgType string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish one notice and forward it like the daemon would",
		RunE: func(cmd *cobra.Command, args []string) error {
			n.Type = models.NotificationType(msgType)
			if n.Type != "" && !n.Type.Valid() {
				return fmt.Errorf("unknown notice type %q (see `noticehook types`)", msgType)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// no watcher for a one-shot send
			d, err := daemon.New(cfg, "")
			if err != nil {
				return err
			}
			defer d.Close()

			d.Send(n)
			return nil
		},
	}
	cmd.Flags().StringVar(&n.Title, "title", "", "notice title")
	cmd.Flags().StringVar(&n.Text, "text", "", "notice text")
	cmd.Flags().StringVar(&msgType, "type", "", "notice type name")
	cmd.Flags().StringVar(&n.Channel, "channel", "", "target channel (non-empty skips the webhook)")
	cmd.Flags().StringVar(&n.Image, "image", "", "image URL")
	return cmd
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, "")
			if err != nil {
				return err
			}
			defer d.Close()

			fmt.Println("🔔 Sending test notification...")
			if err := d.TestNotifier(); err != nil {
				return err
			}
			fmt.Println("✅ Test notification sent!")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show recent webhook deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer db.Close()

			deliveries, err := db.RecentDeliveries(24)
			if err != nil {
				return err
			}

			counts, _ := db.CountByOutcome(24)
			lastSuccess, _ := db.LastSuccess()

			state := "inactive"
			if cfg.Webhook.Active() {
				state = cfg.Webhook.RequestMethod + " " + cfg.Webhook.URL
			}

			fmt.Println("🔔 noticehook Status")
			fmt.Println("─────────────────────────")
			fmt.Printf("  Webhook:       %s\n", state)
			fmt.Printf("  Sent (24h):    %d\n", counts[models.OutcomeSent])
			fmt.Printf("  Failed (24h):  %d\n", counts[models.OutcomeFailed]+counts[models.OutcomeNoResponse]+counts[models.OutcomeError])
			fmt.Printf("  Last success:  %s\n", lastSuccess)
			fmt.Println()

			if len(deliveries) > 0 {
				fmt.Println("  Recent deliveries:")
				limit := 10
				if len(deliveries) < limit {
					limit = len(deliveries)
				}
				for _, d := range deliveries[:limit] {
					detail := d.Title
					if d.Error != "" {
						detail += " (" + d.Error + ")"
					}
					fmt.Printf("    %s %s %s\n",
						d.Timestamp.Format("15:04"),
						d.Outcome.Emoji(),
						detail,
					)
				}
			} else {
				fmt.Println("  No deliveries in last 24 hours")
			}
			return nil
		},
	}
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List notice type names accepted in msgtypes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range models.NotificationTypes() {
				fmt.Printf("  %-16s %s\n", t, t.Label())
			}
		},
	}
}

func setupCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.Run(cfgPath, envPath)
		},
	}
	cmd.Flags().StringVar(&envPath, "env-file", setup.DefaultEnvPath, "path to env file for the webhook URL")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("noticehook v%s\nhttps://github.com/Fullex26/noticehook\n", daemon.Version)
		},
	}
}
