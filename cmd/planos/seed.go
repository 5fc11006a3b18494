package main

import (
	"context"
	"time"

	"planos/internal/auth"
	"planos/internal/goals"
)

type demoGoal struct {
	input    goals.CreateGoalInput
	progress []float64
	note     string
}

// seedGuestGoals fills the in-memory store with a few goals for the guest
// account so local runs have something to show.
func seedGuestGoals(ctx context.Context, users *auth.Service, svc *goals.Service) error {
	guest, err := users.EnsureGuestUser(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)

	demo := []demoGoal{
		{
			input: goals.CreateGoalInput{
				Title:        "Ler 12 livros",
				Description:  "Um livro por mês, alternando ficção e não ficção.",
				TargetMetric: "livros",
				TargetValue:  12,
				Category:     "Leitura",
			},
			progress: []float64{1, 2, 4},
			note:     "Leitura em dia",
		},
		{
			input: goals.CreateGoalInput{
				Title:        "Correr 500 km",
				Description:  "Treinos de corrida três vezes por semana.",
				TargetMetric: "distância",
				TargetValue:  500,
				Unit:         "km",
				Category:     "Saúde",
			},
			progress: []float64{42.5, 96, 151.2},
			note:     "Acumulado do mês",
		},
		{
			input: goals.CreateGoalInput{
				Title:        "Guardar R$ 10.000",
				Description:  "Reserva de emergência.",
				TargetMetric: "economia",
				TargetValue:  10000,
				Unit:         "R$",
				Category:     "Finanças",
			},
		},
	}

	for _, d := range demo {
		d.input.StartDate = &start
		d.input.EndDate = &end
		goal, err := svc.CreateGoal(ctx, guest.ID, d.input)
		if err != nil {
			return err
		}
		for i, value := range d.progress {
			at := now.AddDate(0, -(len(d.progress) - 1 - i), 0)
			if _, err := svc.LogProgress(ctx, guest.ID, goal.ID, goals.LogProgressInput{Value: value, LoggedAt: &at, Note: d.note}); err != nil {
				return err
			}
		}
	}
	return nil
}
