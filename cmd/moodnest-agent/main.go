package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/auth"
	"github.com/MapleGroveLabs/moodnest/internal/checkin"
	"github.com/MapleGroveLabs/moodnest/internal/config"
	"github.com/MapleGroveLabs/moodnest/internal/connectivity"
	"github.com/MapleGroveLabs/moodnest/internal/flow"
	"github.com/MapleGroveLabs/moodnest/internal/logging"
	"github.com/MapleGroveLabs/moodnest/internal/queue"
	"github.com/MapleGroveLabs/moodnest/internal/submit"
	"github.com/MapleGroveLabs/moodnest/internal/syncer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodnest-agent",
		Short: "MoodNest offline-resilient check-in agent",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(newSubmitCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newLoginCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Check-in API base URL")
	cmd.PersistentFlags().String("queue-path", defaults.GetString("queue.path"), "Durable queue file path")
	cmd.PersistentFlags().Int("queue-max-bytes", defaults.GetInt("queue.max_bytes"), "Queue capacity in bytes (0 = unlimited)")
	cmd.PersistentFlags().String("transport", defaults.GetString("transport.kind"), "Delivery transport (tcp, unix)")
	cmd.PersistentFlags().String("socket-path", defaults.GetString("transport.socket_path"), "Relay socket path for the unix transport")
	cmd.PersistentFlags().String("session-token", "", "Session token (overrides env)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "queue.path", "queue-path")
	bindFlag(cmd, "queue.max_bytes", "queue-max-bytes")
	bindFlag(cmd, "transport.kind", "transport")
	bindFlag(cmd, "transport.socket_path", "socket-path")
	bindFlag(cmd, "session.token", "session-token")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// pipeline bundles the wired check-in components.
type pipeline struct {
	logger       *zap.Logger
	monitor      *connectivity.Monitor
	watcher      *connectivity.Watcher
	queue        *queue.Queue
	client       *submit.Client
	submitter    *flow.Submitter
	orchestrator *syncer.Orchestrator
}

func buildPipeline(ctx context.Context) (*pipeline, error) {
	agentConfig, err := config.LoadAgent(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(agentConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := queue.NewFileStore(queue.FileStoreConfig{
		Path:     agentConfig.QueuePath,
		MaxBytes: agentConfig.QueueMaxBytes,
	})
	if err != nil {
		return nil, err
	}
	localQueue, err := queue.New(queue.Config{
		Store:      store,
		IDProvider: checkin.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	prober := connectivity.NewHTTPProber(nil, agentConfig.APIBaseURL+"/healthz")
	monitor := connectivity.NewMonitor(prober.Probe(ctx))
	watcher := connectivity.NewWatcher(connectivity.WatcherConfig{
		Monitor:  monitor,
		Prober:   prober,
		Interval: agentConfig.ProbeInterval,
		Logger:   logger,
	})

	transport, err := submit.NewTransport(submit.TransportConfig{
		Kind:       agentConfig.TransportKind,
		SocketPath: agentConfig.SocketPath,
	})
	if err != nil {
		return nil, err
	}
	client, err := submit.NewClient(submit.ClientConfig{
		Transport:         transport,
		BaseURL:           agentConfig.APIBaseURL,
		Reachability:      monitor,
		SessionCookieName: agentConfig.SessionCookieName,
		SessionToken:      agentConfig.SessionToken,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	submitter, err := flow.NewSubmitter(flow.SubmitterConfig{
		Client: client,
		Queue:  localQueue,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := syncer.New(syncer.Config{
		Queue:  localQueue,
		Client: client,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return &pipeline{
		logger:       logger,
		monitor:      monitor,
		watcher:      watcher,
		queue:        localQueue,
		client:       client,
		submitter:    submitter,
		orchestrator: orchestrator,
	}, nil
}

func newSubmitCommand() *cobra.Command {
	var (
		emotion    string
		note       string
		drawingRef string
		dateISO    string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record one check-in, queuing it locally when offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := buildPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.logger.Sync() //nolint:errcheck

			if dateISO == "" {
				dateISO = time.Now().UTC().Format(time.RFC3339)
			}
			record, err := checkin.NewRecord(checkin.Emotion(emotion), note, drawingRef, dateISO)
			if err != nil {
				return err
			}

			disposition, result := p.submitter.Submit(ctx, record)
			switch disposition {
			case flow.DispositionDelivered:
				fmt.Fprintln(cmd.OutOrStdout(), "check-in delivered")
			case flow.DispositionSavedLocally:
				fmt.Fprintln(cmd.OutOrStdout(), "check-in saved locally, will sync when back online")
			default:
				if result.Err != nil {
					return fmt.Errorf("check-in failed (%s): %w", result.Outcome, result.Err)
				}
				return fmt.Errorf("check-in failed (%s, status %d)", result.Outcome, result.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&emotion, "emotion", "", "Emotion label (happy, sad, angry, scared, calm, excited, tired, silly)")
	cmd.Flags().StringVar(&note, "note", "", "Optional free-text note")
	cmd.Flags().StringVar(&drawingRef, "drawing", "", "Optional drawing reference")
	cmd.Flags().StringVar(&dateISO, "date", "", "Check-in timestamp (RFC 3339, defaults to now)")
	_ = cmd.MarkFlagRequired("emotion")

	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Drain the local queue once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := buildPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.logger.Sync() //nolint:errcheck

			summary := p.orchestrator.Drain(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d, failed %d, pending %d\n",
				summary.Synced, summary.Failed, p.queue.Len())
			if summary.NeedsAuth {
				return errors.New("session expired, re-authenticate and sync again")
			}
			return nil
		},
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch connectivity and sync queued check-ins until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			coordinator := syncer.NewCoordinator(syncer.CoordinatorConfig{
				Monitor:      p.monitor,
				Orchestrator: p.orchestrator,
				Logger:       p.logger,
				OnSummary: func(summary syncer.Summary) {
					fmt.Fprintf(cmd.OutOrStdout(), "synced %d check-ins (failed %d)\n",
						summary.Synced, summary.Failed)
				},
			})

			go p.watcher.Run(ctx)
			coordinator.Run(ctx)
			return nil
		},
	}
}

func newLoginCommand() *cobra.Command {
	var (
		userID        string
		displayName   string
		role          string
		signingSecret string
		issuer        string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Mint a session token for local deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			issuerService := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(signingSecret),
				Issuer:        issuer,
			})
			token, expiresIn, err := issuerService.IssueSessionToken(userID, displayName, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %ds\n", expiresIn)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User identifier")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", auth.RoleChild, "Role (guardian, teacher, child)")
	cmd.Flags().StringVar(&signingSecret, "signing-secret", "", "Session signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", "moodnest-auth", "Token issuer name")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("signing-secret")

	return cmd
}
