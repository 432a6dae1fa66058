package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lostfound-auth",
	Short: "Campus lost-and-found identity service",
	Long:  `Account registration, sign-in sessions, email verification and password reset for the campus lost-and-found portal.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
