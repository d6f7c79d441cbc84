package main

import (
	"fmt"
	"os"

	ghcmd "github.com/telekom/gh-scoped-creds/pkg/ghcreds/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := ghcmd.DefaultConfig()
	root := ghcmd.NewRootCommand(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(cfg.ErrWriter, "Error: %v\n", err)
		return 1
	}
	return 0
}
