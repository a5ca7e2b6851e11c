package domain

import (
	"fmt"
	"strings"
)

const (
	// AffectionMin y AffectionMax acotan el puntaje absoluto.
	AffectionMin = 0
	AffectionMax = 100
	// AffectionDefault es el punto medio neutral para relaciones nuevas.
	AffectionDefault = 50
)

// RelationshipKey identifica la relacion (sujeto, contraparte).
type RelationshipKey struct {
	SubjectID     string `json:"subject_id"`
	CounterpartID string `json:"counterpart_id"`
}

func (k RelationshipKey) String() string {
	return k.SubjectID + "/" + k.CounterpartID
}

// ParseRelationshipKey invierte String.
func ParseRelationshipKey(s string) (RelationshipKey, error) {
	subject, counterpart, ok := strings.Cut(s, "/")
	if !ok || strings.TrimSpace(subject) == "" || strings.TrimSpace(counterpart) == "" {
		return RelationshipKey{}, fmt.Errorf("invalid relationship key %q", s)
	}
	return RelationshipKey{SubjectID: subject, CounterpartID: counterpart}, nil
}

// AffectionRecord es el puntaje actual de una relacion.
type AffectionRecord struct {
	Key         RelationshipKey `json:"key"`
	Score       int             `json:"score"`
	LastTurnSeq int64           `json:"last_turn_seq,omitempty"`
}

// AffectionState es el mapa persistido que el host devuelve entre turnos:
// sujeto -> contraparte -> puntaje.
type AffectionState map[string]map[string]int

// Set asigna un puntaje creando el mapa interno si hace falta.
func (s AffectionState) Set(key RelationshipKey, score int) {
	inner, ok := s[key.SubjectID]
	if !ok {
		inner = make(map[string]int)
		s[key.SubjectID] = inner
	}
	inner[key.CounterpartID] = score
}

// Lookup devuelve el puntaje y si existe.
func (s AffectionState) Lookup(key RelationshipKey) (int, bool) {
	inner, ok := s[key.SubjectID]
	if !ok {
		return 0, false
	}
	score, ok := inner[key.CounterpartID]
	return score, ok
}

// ScoreBand asocia un intervalo de puntaje con una directiva.
// El limite inferior es el Upper de la banda anterior (o 0).
type ScoreBand struct {
	Name           string `json:"name"`
	Upper          int    `json:"upper"`
	UpperInclusive bool   `json:"upper_inclusive"`
	Directive      string `json:"directive"`
}

// Contains indica si score cae por debajo del limite superior de la banda.
func (b ScoreBand) Contains(score int) bool {
	if b.UpperInclusive {
		return score <= b.Upper
	}
	return score < b.Upper
}
