package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "vendor-service"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Vendor catalogue backend for quick commerce",
	Long: `vendor-service exposes the vendor and profile REST API behind
OAuth bearer authentication, backed by PostgreSQL.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
