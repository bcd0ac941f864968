package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"llamachat-backend/internal/repl"

	"github.com/spf13/cobra"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return repl.New(a.chatService, os.Stdin, os.Stdout).Run(ctx)
		},
	}
}
