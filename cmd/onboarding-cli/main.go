// cmd/onboarding-cli/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workshop-onboarding/internal/common/errors"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "onboarding-cli",
	Short: "Workshop onboarding client",
	Long: `Log in as a workshop operator and complete the onboarding wizard.

The wizard saves your progress after every step, so you can stop at any
point and resume later from the first step that is still missing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, statusCmd, profileCmd, wizardCmd, draftCmd, stepsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.UserMessage(err))
		os.Exit(1)
	}
}
