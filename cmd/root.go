package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mipgate",
	Short: "MIP-003 job gateway",
	Long: `mipgate exposes an agent's work over the MIP-003 job lifecycle:
clients submit jobs, pay through the masumi payment service, confirm the
payment with a signed callback, and poll for completion.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
