package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(pubkeyCmd)
	clCmd.AddCommand(signCmd)
	clCmd.AddCommand(initGuildCmd)
	clCmd.AddCommand(proposeCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(processCmd)
	clCmd.AddCommand(rageQuitCmd)
	clCmd.AddCommand(transferCmd)
	clCmd.AddCommand(queryCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
