package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Intake is the slot-filling core of a phone booking agent",
	Long: `Intake extracts structured booking data (name, phone, address, time,
problem description) from free-form caller speech and sequences the
questions needed to complete an appointment booking.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("flow", "", "Path to a flow configuration YAML (default: built-in flow)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("mask", false, "Mask identity values in displayed output")
}

// newEngine builds an engine from the persistent flags.
func newEngine(cmd *cobra.Command, opts ...intake.Option) *intake.Engine {
	flowPath, _ := cmd.Flags().GetString("flow")
	logger := newLogger(cmd)

	all := []intake.Option{intake.WithLogger(logger)}
	if flowPath != "" {
		all = append(all, intake.WithFlowFile(flowPath))
	}
	if masked, _ := cmd.Flags().GetBool("mask"); masked {
		all = append(all, intake.WithMasker(maskIdentity))
	}
	all = append(all, opts...)
	return intake.New(all...)
}

// maskIdentity hides all but the tail of phone numbers and reduces
// names to an initial. Other fields pass through.
func maskIdentity(key, value string) string {
	switch key {
	case domain.KeyPhone:
		if len(value) > 4 {
			return "***" + value[len(value)-4:]
		}
		return "***"
	case domain.KeyName:
		return value[:1] + "***"
	default:
		return value
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelWarn
	}
	return logging.New(level)
}
