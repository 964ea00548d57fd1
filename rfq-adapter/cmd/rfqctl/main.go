package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portcall/adapters/pkg/logger"
	"github.com/portcall/adapters/rfq-adapter/pkg/config"
)

var (
	apiFlag     string
	tokenFlag   string
	accountFlag string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	stopCleaner := make(chan struct{})
	var client Facade

	rootCmd := &cobra.Command{
		Use:           "rfqctl",
		Short:         "CLI client for the RFQ REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyFlags(cmd, cfg)
			logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)

			c, err := newClient(cmd.Context(), cfg, logger.L(), stopCleaner)
			if err != nil {
				return err
			}
			client = c
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			close(stopCleaner)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "", "RFQ API base URL (default $RFQ_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "Bearer token (default $RFQ_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&accountFlag, "account", "", "Resolve the token from Secrets Manager for this account")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List RFQs visible to the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), client, cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "market",
		Short: "List RFQs at ports the caller serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMarket(cmd.Context(), client, cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a single RFQ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), client, args[0], cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "pdf-url <id>",
		Short: "Print the PDF download URL of an RFQ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPDFURL(client, args[0], cmd.OutOrStdout())
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an RFQ from a JSON payload file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			announce, _ := cmd.Flags().GetBool("announce")

			in := cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			var ann Announcer
			if announce {
				pub, err := newPublisher(cfg, createdSubject, logger.L())
				if err != nil {
					return err
				}
				defer func() { _ = pub.Close() }()
				ann = pub
			}
			return runCreate(cmd.Context(), client, in, ann, cfg.ServiceName, cmd.OutOrStdout())
		},
	}
	createCmd.Flags().StringP("file", "f", "", "Payload JSON file, or - for stdin (required)")
	createCmd.Flags().Bool("announce", false, "Publish an rfq.created event after the server accepts the RFQ")
	_ = createCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(createCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "accounts",
		Short: "List accounts with an RFQ secret in Secrets Manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := newTokenResolver(cmd.Context(), cfg, logger.L(), stopCleaner)
			if err != nil {
				return err
			}
			return runAccounts(cmd.Context(), resolver, cmd.OutOrStdout())
		},
	})

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a feed and publish newly discovered RFQs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if feed, _ := cmd.Flags().GetString("feed"); feed != "" {
				cfg.WatchFeed = feed
			}
			if every, _ := cmd.Flags().GetDuration("interval"); every > 0 {
				cfg.WatchInterval = every
			}
			return runWatch(cmd.Context(), cfg, client, logger.L())
		},
	}
	watchCmd.Flags().String("feed", "", "Feed to watch: list or market (default $WATCH_FEED)")
	watchCmd.Flags().Duration("interval", 0, "Poll interval (default $WATCH_INTERVAL)")
	rootCmd.AddCommand(watchCmd)

	return rootCmd
}

// applyFlags lets explicit flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.BaseURL = apiFlag
		cfg.BaseURLSet = true
	}
	if flags.Changed("token") {
		cfg.AccessToken = tokenFlag
	}
	if flags.Changed("account") {
		cfg.Account = accountFlag
	}
}
