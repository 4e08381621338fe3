package main

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {

	var mgmtAddr string

	var rootCmd = &cobra.Command{
		Use: "chat-connector",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the chat connector service",
		Run: func(cmd *cobra.Command, args []string) {
			startChatConnector(mgmtAddr)
		},
	}

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&mgmtAddr, "mgmt-addr", "l", ":8081", "Hostname:port of the management server")

	return rootCmd
}

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
