package service

import (
	"fmt"
	"strings"

	"affection-tracker/internal/domain"
)

// directiveCharPlaceholder se reemplaza por {{char:<id>}}; {{user}} queda para el host.
const directiveCharPlaceholder = "{{char}}"

// ValidateBands exige bandas ordenadas, contiguas y exhaustivas sobre [0,100].
func ValidateBands(bands []domain.ScoreBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: no score bands", ErrInvalidScoringConfig)
	}
	prev := domain.AffectionMin - 1
	prevInclusive := true
	for i, b := range bands {
		if strings.TrimSpace(b.Directive) == "" {
			return fmt.Errorf("%w: band #%d has empty directive", ErrInvalidScoringConfig, i+1)
		}
		// Cada banda debe contener al menos un entero.
		lowest := prev
		if prevInclusive {
			lowest = prev + 1
		}
		if !b.Contains(lowest) {
			return fmt.Errorf("%w: band %q is empty or out of order", ErrInvalidScoringConfig, b.Name)
		}
		prev, prevInclusive = b.Upper, b.UpperInclusive
	}
	last := bands[len(bands)-1]
	if !last.Contains(domain.AffectionMax) {
		return fmt.Errorf("%w: bands do not cover %d", ErrInvalidScoringConfig, domain.AffectionMax)
	}
	return nil
}

// DirectiveMapper traduce puntajes a directivas de comportamiento.
type DirectiveMapper struct {
	bands []domain.ScoreBand
}

func NewDirectiveMapper(bands []domain.ScoreBand) (*DirectiveMapper, error) {
	if err := ValidateBands(bands); err != nil {
		return nil, err
	}
	return &DirectiveMapper{bands: bands}, nil
}

// Band devuelve la unica banda que contiene score. Valores fuera de [0,100] se acotan.
func (m *DirectiveMapper) Band(score int) domain.ScoreBand {
	score = clampAffection(score)
	for _, b := range m.bands {
		if b.Contains(score) {
			return b
		}
	}
	// ValidateBands garantiza cobertura; la ultima banda incluye 100.
	return m.bands[len(m.bands)-1]
}

// Directive devuelve el texto de la banda sin sustituir marcadores.
func (m *DirectiveMapper) Directive(score int) string {
	return m.Band(score).Directive
}

// Render sustituye el marcador de personaje.
func (m *DirectiveMapper) Render(score int, counterpartID string) string {
	return strings.ReplaceAll(m.Directive(score), directiveCharPlaceholder, "{{char:"+counterpartID+"}}")
}

// DirectiveLine es la directiva calculada para una relacion.
type DirectiveLine struct {
	Key   domain.RelationshipKey `json:"key"`
	Score int                    `json:"score"`
	Band  string                 `json:"band"`
	Text  string                 `json:"text"`
}

// BuildDirectives arma una directiva por contraparte conocida y sujeto.
// Las relaciones no vistas se crean con el valor por defecto.
func (m *DirectiveMapper) BuildDirectives(ledger *AffectionLedger, subjectIDs, counterpartIDs []string) []DirectiveLine {
	lines := make([]DirectiveLine, 0, len(subjectIDs)*len(counterpartIDs))
	for _, counterpart := range counterpartIDs {
		for _, subject := range subjectIDs {
			key := domain.RelationshipKey{SubjectID: subject, CounterpartID: counterpart}
			score := ledger.Get(key)
			lines = append(lines, DirectiveLine{
				Key:   key,
				Score: score,
				Band:  m.Band(score).Name,
				Text:  m.Render(score, counterpart),
			})
		}
	}
	return lines
}

// JoinDirectives une los textos con salto de linea, formato que consume el host.
func JoinDirectives(lines []DirectiveLine) string {
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	return strings.Join(texts, "\n")
}
