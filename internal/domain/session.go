package domain

import "time"

// NarratorReadout guarda las emociones de un mensaje que no movio el ledger.
type NarratorReadout struct {
	Speaker  string               `json:"speaker"`
	Emotions []EmotionObservation `json:"emotions"`
}

// TurnReport resume el ultimo turno procesado de una sesion.
type TurnReport struct {
	TurnID        string           `json:"turn_id"`
	TurnSeq       int64            `json:"turn_seq"`
	Speaker       string           `json:"speaker"`
	Skipped       bool             `json:"skipped"`
	SkipReason    string           `json:"skip_reason,omitempty"`
	Key           *RelationshipKey `json:"key,omitempty"`
	Delta         int              `json:"delta"`
	PreviousScore int              `json:"previous_score"`
	NewScore      int              `json:"new_score"`
	Result        *ScoringResult   `json:"result,omitempty"`
	DiagnosticLog string           `json:"diagnostic_log"`
	ProcessedAt   time.Time        `json:"processed_at"`
}

// Counterpart es un personaje conocido de la sesion.
type Counterpart struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SessionSnapshot es lo que se persiste de una sesion entre turnos.
type SessionSnapshot struct {
	ID           string           `json:"id"`
	SubjectIDs   []string         `json:"subject_ids"`
	Counterparts []Counterpart    `json:"counterparts"`
	Affection    AffectionState   `json:"affection"`
	TurnSeqs     map[string]int64 `json:"turn_seqs,omitempty"`
	NextTurnSeq  int64            `json:"next_turn_seq"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
