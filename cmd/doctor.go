package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment (AWS CLI, credentials, policy file)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, exec, env, err := setup(logger)
		if err != nil {
			return err
		}

		if exec.IsInstalled(cmd.Context()) {
			fmt.Println("AWS CLI: found")
		} else {
			fmt.Println("AWS CLI: NOT FOUND in PATH")
		}

		current := env.Current()
		fmt.Printf("Profile: %s\n", current.Profile)
		fmt.Printf("Region: %s\n", current.Region)
		fmt.Printf("Credentials: %v (source: %s)\n", current.HasCredentials, current.CredentialsSource)
		fmt.Printf("Security mode: %s\n", cfg.SecurityMode)
		if cfg.SecurityPolicyFile != "" {
			fmt.Printf("Security policy file: %s\n", cfg.SecurityPolicyFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
