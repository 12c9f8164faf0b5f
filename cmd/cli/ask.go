package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) askCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "ask MESSAGE...",
		Short: "Ask the tax assistant a question",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if history {
				for _, m := range c.svc.App.ChatHistory() {
					fmt.Fprintf(out, "%s: %s\n\n", m.Role, m.Text)
				}
				return nil
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("message must not be empty")
			}
			reply, err := c.svc.App.Ask(cmd.Context(), question)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, reply.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Print the conversation instead of asking")
	return cmd
}
