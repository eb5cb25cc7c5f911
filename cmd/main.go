// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitswing/bitswing/pkg/api"
	"github.com/bitswing/bitswing/pkg/config"
	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
)

const defaultConfigPath = "./Config.toml"

// Exit codes. Configuration problems, kernel-load problems, interface
// problems and a forced shutdown are distinguishable for init systems
// and scripts.
const (
	exitOK = iota
	exitConfig
	exitLoad
	exitInterface
	exitForced
)

var (
	logLevel      string
	statsInterval int
	enableAPI     bool
	apiHost       string
	apiPort       int
)

var rootCmd = &cobra.Command{
	Use:   "bitswing [config-file]",
	Short: "Per-port XDP bandwidth shaper",
	Long: `bitswing enforces per-port byte-per-second rate limits on a network
interface. An XDP program classifies each received frame by transport
destination port and charges it against a token bucket; the control plane
populates the shared rate-limit map from a TOML configuration file.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runShaper,
}

func init() {
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", defaultLogLevel(),
		"Log level (debug, info, warn, error)")
	rootCmd.Flags().IntVarP(&statsInterval, "stats-interval", "s", 0,
		"Statistics print interval in seconds (0 disables)")
	rootCmd.Flags().BoolVarP(&enableAPI, "enable-api", "a", false, "Enable REST API server")
	rootCmd.Flags().StringVar(&apiHost, "api-host", "127.0.0.1", "API server host")
	rootCmd.Flags().IntVar(&apiPort, "api-port", 8080, "API server port")
}

// defaultLogLevel honors the BITSWING_LOG environment variable.
func defaultLogLevel() string {
	if v := os.Getenv("BITSWING_LOG"); v != "" {
		return v
	}
	return "info"
}

func runShaper(cmd *cobra.Command, args []string) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Invalid log level %q: %v", logLevel, err)
		os.Exit(exitConfig)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	cfgPath := defaultConfigPath
	if len(args) == 1 {
		cfgPath = args[0]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		os.Exit(exitConfig)
	}

	log.Infof("Starting bitswing on interface %s (%d rules, default %s)",
		cfg.General.Interface, len(cfg.Rules), limits.FormatBps(cfg.General.DefaultRateLimitBps))

	dp, err := dataplane.New(cfg.General.Interface, cfg.Mode())
	if err != nil {
		log.Errorf("Failed to initialize data plane: %v", err)
		if errors.Is(err, dataplane.ErrInterface) {
			os.Exit(exitInterface)
		}
		os.Exit(exitLoad)
	}

	mgr := limits.NewManager(dp.RateLimitMap())
	if err := mgr.Apply(cfg); err != nil {
		log.Errorf("Failed to populate rate-limit map: %v", err)
		dp.Close()
		os.Exit(exitLoad)
	}

	var apiServer *api.Server
	if enableAPI {
		apiServer, err = api.NewServer(&api.Config{
			Host:         apiHost,
			Port:         apiPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			EnableCORS:   true,
			LogLevel:     logLevel,
		}, dp, mgr)
		if err != nil {
			log.Errorf("Failed to create API server: %v", err)
			dp.Close()
			os.Exit(exitLoad)
		}
		if err := apiServer.Start(); err != nil {
			log.Errorf("Failed to start API server: %v", err)
			dp.Close()
			os.Exit(exitLoad)
		}
		log.Infof("API server listening on http://%s:%d", apiHost, apiPort)
	}

	if statsInterval > 0 {
		go printStats(dp, time.Duration(statsInterval)*time.Second)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	log.Info("bitswing running. SIGHUP reloads the configuration.")

	for s := range sig {
		if s != syscall.SIGHUP {
			break
		}
		reload(mgr, cfgPath, cfg.General.Interface)
	}

	log.Info("Shutting down...")

	// A second signal during shutdown forces immediate exit.
	go func() {
		<-sig
		log.Warn("Forced exit")
		os.Exit(exitForced)
	}()

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			log.Errorf("Error stopping API server: %v", err)
		}
	}
	if err := dp.Close(); err != nil {
		log.Errorf("Error detaching shaper: %v", err)
	}
	os.Exit(exitOK)
}

// reload re-reads the configuration and applies the difference to the
// running map. Any failure keeps the last successful state in effect.
func reload(mgr *limits.Manager, cfgPath, iface string) {
	log.Infof("Reloading configuration from %s", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Errorf("Reload rejected, keeping current rules: %v", err)
		return
	}
	if cfg.General.Interface != iface {
		log.Warnf("Interface changed from %s to %s: reattachment requires a restart, rules reloaded anyway",
			iface, cfg.General.Interface)
	}
	if err := mgr.Reload(cfg); err != nil {
		log.Errorf("Reload incomplete, last successful state remains in effect: %v", err)
	}
}

func printStats(dp *dataplane.DataPlane, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		stats := dp.GetStatistics()
		log.WithFields(log.Fields{
			"total":        stats.TotalPackets,
			"passed":       stats.PassedPackets,
			"dropped":      stats.DroppedPackets,
			"non_ip":       stats.NonIPPackets,
			"default_hits": stats.DefaultBucketHits,
		}).Info("Datapath statistics")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
}
