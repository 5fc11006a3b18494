package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"planos/internal/auth"
	"planos/internal/goals"
	"planos/internal/platform/logging"
)

func newGoalsCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "goals",
		Short: "List a user's goals",
		Long:  `List the goals of the user with the given email. Use guest@local for the guest account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			cfg, err := loadDatabaseConfig()
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)

			st, err := buildStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := auth.NewService(st.users).FindByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no user with email %s", email)
			}

			list, err := goals.NewService(st.goals).ListGoals(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			renderGoals(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the goals' owner")
	return cmd
}

func renderGoals(w io.Writer, list []goals.Goal) {
	if len(list) == 0 {
		fmt.Fprintln(w, "Nenhum objetivo cadastrado ainda.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Objetivo", "Categoria", "Meta", "Atual", "Progresso", "Período"})
	for _, g := range list {
		t.AppendRow(table.Row{
			g.ID,
			g.Title,
			g.Category,
			formatAmount(g.TargetValue, g.DisplayUnit()),
			formatAmount(g.CurrentValue, g.DisplayUnit()),
			fmt.Sprintf("%d%%", g.Completion()),
			formatPeriod(g),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d objetivo(s)", len(list))})
	t.Render()
}

func formatAmount(value float64, unit string) string {
	return strings.TrimSpace(fmt.Sprintf("%g %s", value, unit))
}

func formatPeriod(g goals.Goal) string {
	if g.StartDate == nil || g.EndDate == nil {
		return ""
	}
	return g.StartDate.Format(goals.DisplayDateLayout) + " - " + g.EndDate.Format(goals.DisplayDateLayout)
}
