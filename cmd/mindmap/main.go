package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/mindmap/internal/profile"
	"github.com/hrygo/mindmap/server"
	"github.com/hrygo/mindmap/internal/observability"
	"github.com/hrygo/mindmap/store"
	"github.com/hrygo/mindmap/store/cache"
	"github.com/hrygo/mindmap/store/db/memory"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "mindmap",
	Short: "A study tracking server with cached analysis and knowledge maps",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Secret:  viper.GetString("secret"),
			Version: version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		observability.SetupLogger(instanceProfile.Mode)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Host = instanceProfile.RedisHost
		redisConfig.Port = instanceProfile.RedisPort
		redisConfig.DB = instanceProfile.RedisDB
		redisConfig.Password = instanceProfile.RedisPassword
		textBackend, binaryBackend, err := cache.NewRedisBackends(redisConfig)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		storeInstance := store.New(memory.NewDriver(), cache.NewStore(textBackend, binaryBackend), instanceProfile)

		s, err := server.NewServer(instanceProfile, storeInstance)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			s.Shutdown(ctx)
			cancel()
		}()

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			cancel()
		}

		<-ctx.Done()
	},
}

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("mindmap")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign tokens")

	for _, flag := range []string{"mode", "addr", "port", "data", "secret"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
