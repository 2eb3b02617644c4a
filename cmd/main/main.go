package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper-trader/src/config"
	pb "paper-trader/src/grpc_control"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "paper-trader",
		Short:        "Paper trading server for crypto and Indian equities",
		SilenceUsage: true,
		// serve is the default
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/default.yaml", "path to config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP, WebSocket and gRPC servers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database schema and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(configPath)
			},
		},
		newFeedsCmd(&configPath),
		newConfigCmd(),
	)
	return root
}

// -----------------------------------------------------------------------------

func runServe(ctx context.Context, configPath string) error {
	cfg, appLogger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	app, err := buildApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Startup failed: %v", err)
		return err
	}
	return app.Run(ctx)
}

func runMigrate(configPath string) error {
	cfg, appLogger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	appLogger.Info("Schema ready (%s)", cfg.Storage.DBType)
	return db.Close()
}

// -----------------------------------------------------------------------------
// Control client
// -----------------------------------------------------------------------------

func newFeedsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Inspect and control the market data feeds of a running server",
	}

	call := func(fn func(context.Context, *pb.ControlClient) (*structpb.Struct, error)) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig(*configPath)
			if err != nil {
				return err
			}
			conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort),
				grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
			defer cancel()
			res, err := fn(ctx, pb.NewControlClient(conn))
			if err != nil {
				return err
			}
			out, err := protojson.MarshalOptions{Multiline: true}.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(out))
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List feeds and their state",
			RunE: call(func(ctx context.Context, c *pb.ControlClient) (*structpb.Struct, error) {
				return c.ListFeeds(ctx)
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show account and persistence counters",
			RunE: call(func(ctx context.Context, c *pb.ControlClient) (*structpb.Struct, error) {
				return c.LedgerStats(ctx)
			}),
		},
	)
	for _, verb := range []string{"start", "stop"} {
		var name string
		sub := &cobra.Command{
			Use:   verb + " NAME",
			Short: fmt.Sprintf("%s a feed", verb),
			Args:  cobra.ExactArgs(1),
			PreRun: func(_ *cobra.Command, args []string) {
				name = args[0]
			},
			RunE: call(func(ctx context.Context, c *pb.ControlClient) (*structpb.Struct, error) {
				if verb == "start" {
					return c.StartFeed(ctx, name)
				}
				return c.StopFeed(ctx, name)
			}),
		}
		cmd.AddCommand(sub)
	}
	return cmd
}

// -----------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	var out string
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		RunE: func(c *cobra.Command, _ []string) error {
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}
			cfg := &config.Config{MConfig: config.Defaults()}
			if err := cfg.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&out, "out", "o", "config/default.yaml", "destination file")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	cmd.AddCommand(initCmd)
	return cmd
}
