package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prilive-com/strmbot/internal/handler"
)

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write <text>...",
		Short: "Create a .strm file locally, exactly as the bot would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateStorage(); err != nil {
				return err
			}

			h := handler.New(handler.Config{
				StorageDir:    a.cfg.StorageDir(),
				MaxNameLength: a.cfg.MaxNameLength(),
			}, nil)

			res, err := h.Create(strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "filename: %s\n", res.Filename)
			fmt.Fprintf(out, "content:  %s\n", res.Content)
			fmt.Fprintf(out, "path:     %s\n", res.Path)
			return nil
		},
	}
}
