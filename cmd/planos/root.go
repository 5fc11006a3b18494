package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planos",
		Short: "Track New Year's goals, progress and monthly reviews",
		Long: `planos serves the Planos de Ano Novo web application and offers
maintenance commands for its database.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newGoalsCmd())
	return root
}
