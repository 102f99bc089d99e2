package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/keywatch/searchvolume/internal/auth"
	"github.com/keywatch/searchvolume/internal/config"
	"github.com/keywatch/searchvolume/internal/database"
	"github.com/keywatch/searchvolume/internal/keyword"
	"github.com/keywatch/searchvolume/internal/logging"
	"github.com/keywatch/searchvolume/internal/metrics"
	"github.com/keywatch/searchvolume/internal/query"
	"github.com/keywatch/searchvolume/internal/seed"
	"github.com/keywatch/searchvolume/internal/server"
	"github.com/keywatch/searchvolume/internal/subscription"
	"github.com/keywatch/searchvolume/internal/user"
	"github.com/keywatch/searchvolume/internal/volume"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "searchvolume",
		Short: "Keyword search volume query service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newDeriveCommand(), newSeedCommand(), newIssueTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("anchor-hour", defaults.GetInt("snapshot.anchor_hour"), "Hour of day anchoring daily snapshots")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Bearer token TTL in minutes")
	cmd.PersistentFlags().String("signing-secret", "", "Bearer token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "snapshot.anchor_hour", "anchor-hour")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
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

// bootstrap loads configuration and opens the shared logger and database.
func bootstrap() (config.AppConfig, *zap.Logger, *gorm.DB, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	return appConfig, logger, db, nil
}

func runServer(ctx context.Context) error {
	appConfig, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	subscriptionStore, err := subscription.NewStore(db)
	if err != nil {
		return err
	}
	keywordStore, err := keyword.NewStore(db)
	if err != nil {
		return err
	}
	volumeStore, err := volume.NewStore(db)
	if err != nil {
		return err
	}

	queryService, err := query.NewService(query.ServiceConfig{
		Subscriptions: subscriptionStore,
		Keywords:      keywordStore,
		Volumes:       volumeStore,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	var validator server.TokenValidator
	if appConfig.AuthEnabled() {
		validator = auth.NewTokenIssuer(auth.TokenIssuerConfig{
			SigningSecret: []byte(appConfig.SigningSecret),
			TokenTTL:      appConfig.TokenTTL,
		})
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		QueryService: queryService,
		Tokens:       validator,
		Metrics:      metrics.New(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.Bool("auth_enabled", appConfig.AuthEnabled()))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newDeriveCommand materializes daily snapshots for a date range. It runs on
// its own schedule and shares nothing with the serving path but the database.
func newDeriveCommand() *cobra.Command {
	var fromDate, toDate string

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive daily snapshots from hourly samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			from, err := time.Parse(time.DateOnly, fromDate)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			to, err := time.Parse(time.DateOnly, toDate)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}

			volumeStore, err := volume.NewStore(db)
			if err != nil {
				return err
			}
			keywordStore, err := keyword.NewStore(db)
			if err != nil {
				return err
			}
			deriver, err := volume.NewDeriver(volume.DeriverConfig{
				Store:      volumeStore,
				AnchorHour: appConfig.AnchorHour,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			keywordIDs, err := keywordStore.ListIDs(cmd.Context())
			if err != nil {
				return err
			}

			written, err := deriver.DeriveRange(cmd.Context(), keywordIDs, from, to)
			if err != nil {
				return err
			}
			logger.Info("snapshot derivation finished",
				zap.Int("snapshots_written", written),
				zap.Int("keywords", len(keywordIDs)))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "End date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with the deterministic sample dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return seed.Run(cmd.Context(), db, seed.DefaultOptions(), logger)
		},
	}
}

func newIssueTokenCommand() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if !appConfig.AuthEnabled() {
				return errors.New("auth.signing_secret must be configured to issue tokens")
			}

			userStore, err := user.NewStore(db)
			if err != nil {
				return err
			}
			exists, err := userStore.Exists(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("user %d is not on record", userID)
			}

			issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(appConfig.SigningSecret),
				TokenTTL:      appConfig.TokenTTL,
			})
			token, expiresIn, err := issuer.IssueToken(userID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.OutOrStdout(), "expires_in:", strconv.FormatInt(expiresIn, 10))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "User id the token is issued for")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
