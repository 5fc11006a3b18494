package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planos/internal/auth"
	"planos/internal/goals"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "goals"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestGoalsCommandRequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"goals"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email")
}

func TestMigrateRejectsMemoryStore(t *testing.T) {
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PLANOS_SECRETS_FILE", t.TempDir()+"/missing.yaml")

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestRenderGoals(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	var out bytes.Buffer

	renderGoals(&out, []goals.Goal{{
		ID:           1,
		Title:        "Correr 500 km",
		Category:     "Saúde",
		TargetMetric: "distância",
		TargetValue:  500,
		CurrentValue: 125,
		Unit:         "km",
		StartDate:    &start,
		EndDate:      &end,
	}})

	text := out.String()
	assert.Contains(t, text, "Correr 500 km")
	assert.Contains(t, text, "500 km")
	assert.Contains(t, text, "25%")
	assert.Contains(t, text, "01/01/2025 - 31/12/2025")
}

func TestRenderGoalsEmpty(t *testing.T) {
	var out bytes.Buffer
	renderGoals(&out, nil)
	assert.Equal(t, "Nenhum objetivo cadastrado ainda.\n", out.String())
}

func TestSeedGuestGoals(t *testing.T) {
	ctx := context.Background()
	users := auth.NewService(auth.NewMemoryRepository())
	svc := goals.NewService(goals.NewInMemoryRepository())

	require.NoError(t, seedGuestGoals(ctx, users, svc))

	guest, err := users.EnsureGuestUser(ctx)
	require.NoError(t, err)
	list, err := svc.ListGoals(ctx, guest.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	overview, err := svc.Overview(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.ActiveGoals)
	assert.Len(t, overview.Series, 2)
	assert.NotEqual(t, goals.NoRecordsLabel, overview.LastUpdate)
}
