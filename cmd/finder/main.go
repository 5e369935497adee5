package main

import (
	"context"
	"os"

	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/cmd"
)

func main() {
	cli.InitColor()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose).Handle(err)
		os.Exit(1)
	}
}
