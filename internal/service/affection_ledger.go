package service

import (
	"errors"
	"sort"
	"sync"

	"affection-tracker/internal/domain"
)

var ErrSupersededTurn = errors.New("turn superseded by a newer turn")

const (
	// Umbrales de amortiguacion en los extremos.
	highDampingThreshold = 90
	lowDampingThreshold  = 10
)

// AffectionLedger guarda el puntaje entero por relacion. Apply es la unica via de mutacion
// de puntajes (Replace solo carga el estado autoritativo del host).
type AffectionLedger struct {
	mu      sync.Mutex
	scores  map[domain.RelationshipKey]int
	lastSeq map[domain.RelationshipKey]int64
}

func NewAffectionLedger() *AffectionLedger {
	return &AffectionLedger{
		scores:  make(map[domain.RelationshipKey]int),
		lastSeq: make(map[domain.RelationshipKey]int64),
	}
}

// NewAffectionLedgerFromState construye un ledger a partir del mapa persistido.
func NewAffectionLedgerFromState(state domain.AffectionState) *AffectionLedger {
	l := NewAffectionLedger()
	l.Replace(state)
	return l
}

// Get devuelve el puntaje actual, creando la relacion con 50 si no existe.
func (l *AffectionLedger) Get(key domain.RelationshipKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(key)
}

func (l *AffectionLedger) getLocked(key domain.RelationshipKey) int {
	score, ok := l.scores[key]
	if !ok {
		score = domain.AffectionDefault
		l.scores[key] = score
	}
	return score
}

// Peek devuelve el puntaje sin crear la relacion.
func (l *AffectionLedger) Peek(key domain.RelationshipKey) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	score, ok := l.scores[key]
	return score, ok
}

// Apply aplica el delta con amortiguacion en los extremos y devuelve el nuevo puntaje.
func (l *AffectionLedger) Apply(key domain.RelationshipKey, delta int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyLocked(key, delta)
}

// ApplyTurn es Apply con chequeo de secuencia: un turno con seq menor o igual al
// ultimo aplicado para la misma relacion se rechaza sin tocar el ledger.
// seq <= 0 desactiva el chequeo.
func (l *AffectionLedger) ApplyTurn(key domain.RelationshipKey, seq int64, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq > 0 {
		if last, ok := l.lastSeq[key]; ok && seq <= last {
			return l.getLocked(key), ErrSupersededTurn
		}
		l.lastSeq[key] = seq
	}
	return l.applyLocked(key, delta), nil
}

func (l *AffectionLedger) applyLocked(key domain.RelationshipKey, delta int) int {
	current := l.getLocked(key)
	delta = dampDelta(current, delta)
	next := clampAffection(current + delta)
	l.scores[key] = next
	return next
}

func dampDelta(current, delta int) int {
	if current >= highDampingThreshold && delta > 0 {
		return 1
	}
	if current <= lowDampingThreshold && delta < 0 {
		return -1
	}
	return delta
}

func clampAffection(v int) int {
	if v < domain.AffectionMin {
		return domain.AffectionMin
	}
	if v > domain.AffectionMax {
		return domain.AffectionMax
	}
	return v
}

// LastTurnSeq devuelve la ultima secuencia aplicada para la relacion.
func (l *AffectionLedger) LastTurnSeq(key domain.RelationshipKey) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq[key]
}

// Snapshot exporta el mapa completo para devolverlo al host.
func (l *AffectionLedger) Snapshot() domain.AffectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := make(domain.AffectionState)
	for key, score := range l.scores {
		state.Set(key, score)
	}
	return state
}

// Records lista las relaciones ordenadas por sujeto y contraparte.
func (l *AffectionLedger) Records() []domain.AffectionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := make([]domain.AffectionRecord, 0, len(l.scores))
	for key, score := range l.scores {
		records = append(records, domain.AffectionRecord{Key: key, Score: score, LastTurnSeq: l.lastSeq[key]})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Key.SubjectID != records[j].Key.SubjectID {
			return records[i].Key.SubjectID < records[j].Key.SubjectID
		}
		return records[i].Key.CounterpartID < records[j].Key.CounterpartID
	})
	return records
}

// Replace carga el estado autoritativo del host. Los valores fuera de rango se acotan.
// Las secuencias ya vistas se conservan.
func (l *AffectionLedger) Replace(state domain.AffectionState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores = make(map[domain.RelationshipKey]int)
	for subject, inner := range state {
		for counterpart, score := range inner {
			l.scores[domain.RelationshipKey{SubjectID: subject, CounterpartID: counterpart}] = clampAffection(score)
		}
	}
}

// RestoreRecords carga puntajes y secuencias desde un repositorio.
func (l *AffectionLedger) RestoreRecords(records []domain.AffectionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.scores[r.Key] = clampAffection(r.Score)
		if r.LastTurnSeq > 0 {
			l.lastSeq[r.Key] = r.LastTurnSeq
		}
	}
}
