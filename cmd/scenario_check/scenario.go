package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"affection-tracker/internal/domain"
	"affection-tracker/internal/service"
)

const scenarioCounterpart = "c1"

// Scenario es una secuencia de mensajes de una contraparte y el rango esperado al final.
type Scenario struct {
	Name   string      `toml:"name"`
	Start  int         `toml:"start"`
	Steps  []Step      `toml:"step"`
	Expect Expectation `toml:"expect"`
}

type Step struct {
	// Speaker vacio es la contraparte; "narrator" nunca mueve el puntaje.
	Speaker string `toml:"speaker"`
	Content string `toml:"content"`
}

type Expectation struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

type stepResult struct {
	Speaker string
	Content string
	Outcome string
}

type scenarioResult struct {
	Final  int
	Passed bool
	Steps  []stepResult
}

type scenarioFile struct {
	Scenarios []Scenario `toml:"scenario"`
}

func loadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f scenarioFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range f.Scenarios {
		if f.Scenarios[i].Start == 0 {
			f.Scenarios[i].Start = domain.AffectionDefault
		}
	}
	return f.Scenarios, nil
}

func runScenario(ctx context.Context, turns *service.TurnService, sc Scenario) (scenarioResult, error) {
	view, err := turns.OpenSession(ctx, "", []string{"user"}, []domain.Counterpart{{ID: scenarioCounterpart, Name: "Counterpart"}})
	if err != nil {
		return scenarioResult{}, err
	}
	key := domain.RelationshipKey{SubjectID: "user", CounterpartID: scenarioCounterpart}
	start := domain.AffectionState{}
	start.Set(key, sc.Start)
	if _, err := turns.SetState(ctx, view.ID, start); err != nil {
		return scenarioResult{}, err
	}

	res := scenarioResult{Final: sc.Start}
	for _, step := range sc.Steps {
		msg := domain.TurnMessage{
			SessionID:    view.ID,
			SubjectID:    "user",
			AnonymizedID: scenarioCounterpart,
			Name:         "Counterpart",
			Content:      step.Content,
		}
		speaker := "Counterpart"
		if step.Speaker != "" {
			speaker = step.Speaker
			msg.Name = step.Speaker
			msg.AnonymizedID = ""
		}
		outcome, err := turns.AfterResponse(ctx, msg, nil)
		if err != nil {
			return scenarioResult{}, err
		}
		r := outcome.Report
		desc := fmt.Sprintf("%+d (%d -> %d)", r.Delta, r.PreviousScore, r.NewScore)
		if r.Skipped {
			desc = "skipped: " + r.SkipReason
		}
		res.Steps = append(res.Steps, stepResult{Speaker: speaker, Content: step.Content, Outcome: desc})
		if score, ok := outcome.Affection.Lookup(key); ok {
			res.Final = score
		}
	}
	res.Passed = res.Final >= sc.Expect.Min && res.Final <= sc.Expect.Max
	return res, nil
}

// defaultScenarios cubre las reglas basicas del motor con el clasificador por palabras clave.
func defaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:  "warm confession raises affection",
			Start: 50,
			Steps: []Step{
				{Content: "I love you. Thank you for staying with me."},
			},
			Expect: Expectation{Min: 51, Max: 54},
		},
		{
			Name:  "hostility lowers affection",
			Start: 50,
			Steps: []Step{
				{Content: "She growls at you and spits. I hate you."},
			},
			Expect: Expectation{Min: 46, Max: 49},
		},
		{
			Name:  "narrator never moves the score",
			Start: 50,
			Steps: []Step{
				{Speaker: "Narrator", Content: "I love you, the wind seemed to whisper."},
			},
			Expect: Expectation{Min: 50, Max: 50},
		},
		{
			Name:  "damping near the top",
			Start: 95,
			Steps: []Step{
				{Content: "I love you. Thank you, truly."},
			},
			Expect: Expectation{Min: 96, Max: 96},
		},
	}
}
