package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/internal/version"
	"github.com/hrygo/slotfinder/server"
	"github.com/hrygo/slotfinder/store"
	"github.com/hrygo/slotfinder/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "slotfinder",
		Short: "Find the dates and meeting slots that work for everyone, from free-text availability.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
)

// loadProfile reads SLOTFINDER_* variables, then applies flags and their
// viper-bound environment overrides.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{}
	p.FromEnv()

	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Data = viper.GetString("data")
	p.Driver = viper.GetString("driver")
	p.DSN = viper.GetString("dsn")
	p.InstanceURL = viper.GetString("instance-url")
	if tz := viper.GetString("default-timezone"); tz != "" {
		p.DefaultTimezone = tz
	}
	if tz := viper.GetString("calendar-timezone"); tz != "" {
		p.CalendarTimezone = tz
	}
	p.Version = version.GetCurrentVersion(p.Mode)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func serve(ctx context.Context) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return fmt.Errorf("failed to migrate: %w", err)
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		_ = storeInstance.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := s.Start(ctx); err != nil {
		s.Shutdown(context.Background())
		return err
	}
	printGreetings(instanceProfile)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your slotfinder instance")
	rootCmd.PersistentFlags().String("default-timezone", "", "zone used when a record or viewer carries none (default UTC)")
	rootCmd.PersistentFlags().String("calendar-timezone", "", "zone date-only records are anchored to (default: server local zone)")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url", "default-timezone", "calendar-timezone"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("slotfinder")
	viper.AutomaticEnv()
	if err := viper.BindEnv("instance-url", "SLOTFINDER_INSTANCE_URL"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("default-timezone", "SLOTFINDER_DEFAULT_TIMEZONE"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("calendar-timezone", "SLOTFINDER_CALENDAR_TIMEZONE"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd, parseCmd, aggregateCmd)
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("slotfinder %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
	if p.AIEnabled {
		fmt.Printf("LLM parsing: %s (%s)\n", p.AILLMProvider, p.AILLMModel)
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
