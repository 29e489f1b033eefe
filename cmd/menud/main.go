// Package main provides the menud binary entry point.
// Menud maintains live, joined restaurant-menu views over a NATS-backed
// document store and serves them through a read-only HTTP API.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "menud"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Live restaurant-menu view service",
		Long: `Menud joins the restaurant, category, item, and template collections of a
NATS-backed document store into per-restaurant menu views, keeps them fresh
through live subscriptions, and serves them over a read-only HTTP API.

The service never writes menu data; population happens out of band (see the
seed command for development data).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ./menulive.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(seedCmd(&configPath, &logLevel))

	return cmd
}
