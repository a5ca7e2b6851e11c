package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"affection-tracker/internal/classifier"
	"affection-tracker/internal/domain"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTurnInvalidInput = errors.New("turn invalid input")
)

// defaultSubjectID se usa cuando ni el mensaje ni la sesion nombran al sujeto.
const defaultSubjectID = "default"

// Motivos de salto registrados en TurnReport.SkipReason.
const (
	SkipNarrator                  = "narrator"
	SkipUnresolvedSpeaker         = "unresolved_speaker"
	SkipClassificationUnavailable = "classification_unavailable"
	SkipUnparseableClassification = "unparseable_classification"
	SkipSuperseded                = "superseded"
)

// SessionState es el estado tipado de una sesion: ledger, roster y diagnosticos del ultimo turno.
type SessionState struct {
	mu                    sync.Mutex
	id                    string
	subjectIDs            []string
	counterparts          []domain.Counterpart
	ledger                *AffectionLedger
	lastTurn              *domain.TurnReport
	lastSpeakerIsNarrator bool
	narratorReadout       *domain.NarratorReadout
	emotionBreakdown      map[string][]domain.EmotionObservation
	nextTurnSeq           int64
}

// SessionView es una copia de solo lectura de SessionState.
type SessionView struct {
	ID                    string                                 `json:"id"`
	SubjectIDs            []string                               `json:"subject_ids"`
	Counterparts          []domain.Counterpart                   `json:"counterparts"`
	Affection             domain.AffectionState                  `json:"affection"`
	Records               []domain.AffectionRecord               `json:"records"`
	LastTurn              *domain.TurnReport                     `json:"last_turn,omitempty"`
	LastSpeakerIsNarrator bool                                   `json:"last_speaker_is_narrator"`
	NarratorReadout       *domain.NarratorReadout                `json:"narrator_readout,omitempty"`
	EmotionBreakdown      map[string][]domain.EmotionObservation `json:"emotion_breakdown,omitempty"`
}

func newSessionState(id string) *SessionState {
	return &SessionState{
		id:               id,
		ledger:           NewAffectionLedger(),
		emotionBreakdown: make(map[string][]domain.EmotionObservation),
	}
}

func sessionFromSnapshot(snap domain.SessionSnapshot) *SessionState {
	sess := newSessionState(snap.ID)
	sess.subjectIDs = append(sess.subjectIDs, snap.SubjectIDs...)
	sess.counterparts = append(sess.counterparts, snap.Counterparts...)
	sess.nextTurnSeq = snap.NextTurnSeq

	records := make([]domain.AffectionRecord, 0)
	for subject, inner := range snap.Affection {
		for counterpart, score := range inner {
			key := domain.RelationshipKey{SubjectID: subject, CounterpartID: counterpart}
			records = append(records, domain.AffectionRecord{Key: key, Score: score, LastTurnSeq: snap.TurnSeqs[key.String()]})
		}
	}
	sess.ledger.RestoreRecords(records)
	return sess
}

func (s *SessionState) snapshotLocked(now time.Time) domain.SessionSnapshot {
	seqs := make(map[string]int64)
	for _, r := range s.ledger.Records() {
		if r.LastTurnSeq > 0 {
			seqs[r.Key.String()] = r.LastTurnSeq
		}
	}
	return domain.SessionSnapshot{
		ID:           s.id,
		SubjectIDs:   append([]string(nil), s.subjectIDs...),
		Counterparts: append([]domain.Counterpart(nil), s.counterparts...),
		Affection:    s.ledger.Snapshot(),
		TurnSeqs:     seqs,
		NextTurnSeq:  s.nextTurnSeq,
		UpdatedAt:    now,
	}
}

func (s *SessionState) viewLocked() SessionView {
	breakdown := make(map[string][]domain.EmotionObservation, len(s.emotionBreakdown))
	for id, emotions := range s.emotionBreakdown {
		breakdown[id] = append([]domain.EmotionObservation(nil), emotions...)
	}
	return SessionView{
		ID:                    s.id,
		SubjectIDs:            append([]string(nil), s.subjectIDs...),
		Counterparts:          append([]domain.Counterpart(nil), s.counterparts...),
		Affection:             s.ledger.Snapshot(),
		Records:               s.ledger.Records(),
		LastTurn:              s.lastTurn,
		LastSpeakerIsNarrator: s.lastSpeakerIsNarrator,
		NarratorReadout:       s.narratorReadout,
		EmotionBreakdown:      breakdown,
	}
}

func (s *SessionState) rosterLocked() map[string]string {
	roster := make(map[string]string, len(s.counterparts))
	for _, c := range s.counterparts {
		roster[c.ID] = c.Name
	}
	return roster
}

func (s *SessionState) counterpartIDsLocked() []string {
	ids := make([]string, 0, len(s.counterparts))
	for _, c := range s.counterparts {
		ids = append(ids, c.ID)
	}
	return ids
}

func (s *SessionState) mergeLocked(subjectIDs []string, counterparts []domain.Counterpart) {
	for _, subject := range subjectIDs {
		subject = strings.TrimSpace(subject)
		if subject == "" || containsString(s.subjectIDs, subject) {
			continue
		}
		s.subjectIDs = append(s.subjectIDs, subject)
	}
	if len(s.subjectIDs) == 0 {
		s.subjectIDs = []string{defaultSubjectID}
	}
	for _, c := range counterparts {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			continue
		}
		found := false
		for i := range s.counterparts {
			if s.counterparts[i].ID == c.ID {
				if c.Name != "" {
					s.counterparts[i].Name = c.Name
				}
				found = true
				break
			}
		}
		if !found {
			s.counterparts = append(s.counterparts, c)
		}
	}
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// TurnOutcome es lo que el host recibe despues de cada turno: el reporte y el mapa completo actualizado.
type TurnOutcome struct {
	Report    domain.TurnReport     `json:"report"`
	Affection domain.AffectionState `json:"affection"`
}

// DirectiveOutput es la salida previa a la generacion.
type DirectiveOutput struct {
	Directives string                `json:"stage_directions"`
	Lines      []DirectiveLine       `json:"lines"`
	Affection  domain.AffectionState `json:"affection"`
}

// TurnService orquesta el ciclo por turno: clasificar, puntuar, aplicar al ledger y persistir.
type TurnService struct {
	classifier classifier.Classifier
	pipeline   *ScoringPipeline
	directives *DirectiveMapper
	store      SessionStore
	sequencer  TurnSequencer
	limiter    ClassifyRateLimiter
	history    *TurnHistoryService
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*SessionState
}

func NewTurnService(
	cls classifier.Classifier,
	pipeline *ScoringPipeline,
	directives *DirectiveMapper,
	store SessionStore,
	sequencer TurnSequencer,
	logger *zap.Logger,
) *TurnService {
	if store == nil {
		store = NewMemorySessionStore()
	}
	if sequencer == nil {
		sequencer = NewMemoryTurnSequencer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnService{
		classifier: cls,
		pipeline:   pipeline,
		directives: directives,
		store:      store,
		sequencer:  sequencer,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		sessions:   make(map[string]*SessionState),
	}
}

// WithRateLimiter limita las llamadas al clasificador por sesion.
func (s *TurnService) WithRateLimiter(limiter ClassifyRateLimiter) *TurnService {
	s.limiter = limiter
	return s
}

// WithHistory registra cada TurnReport procesado.
func (s *TurnService) WithHistory(history *TurnHistoryService) *TurnService {
	s.history = history
	return s
}

// History devuelve los ultimos limit reportes de la sesion.
func (s *TurnService) History(ctx context.Context, sessionID string, limit int) ([]domain.TurnReport, error) {
	if _, err := s.session(ctx, sessionID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, ErrTurnHistoryNotConfigured
	}
	return s.history.ListBySession(ctx, sessionID, limit)
}

// OpenSession crea o extiende una sesion con sujetos y contrapartes conocidas.
func (s *TurnService) OpenSession(ctx context.Context, sessionID string, subjectIDs []string, counterparts []domain.Counterpart) (SessionView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := s.session(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		sess = s.register(newSessionState(sessionID))
	} else if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.mergeLocked(subjectIDs, counterparts)
	if err := s.store.Save(ctx, sess.snapshotLocked(s.now())); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	return sess.viewLocked(), nil
}

// State devuelve la vista actual de la sesion.
func (s *TurnService) State(ctx context.Context, sessionID string) (SessionView, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

// SetState reemplaza el ledger con el mapa autoritativo del host.
func (s *TurnService) SetState(ctx context.Context, sessionID string, state domain.AffectionState) (domain.AffectionState, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.ledger.Replace(state)
	if err := s.store.Save(ctx, sess.snapshotLocked(s.now())); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess.ledger.Snapshot(), nil
}

// BeforePrompt calcula la directiva de cada contraparte conocida antes de generar.
func (s *TurnService) BeforePrompt(ctx context.Context, sessionID string) (DirectiveOutput, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return DirectiveOutput{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	lines := s.directives.BuildDirectives(sess.ledger, sess.subjectIDs, sess.counterpartIDsLocked())
	if err := s.store.Save(ctx, sess.snapshotLocked(s.now())); err != nil {
		return DirectiveOutput{}, fmt.Errorf("save session: %w", err)
	}
	return DirectiveOutput{
		Directives: JoinDirectives(lines),
		Lines:      lines,
		Affection:  sess.ledger.Snapshot(),
	}, nil
}

// AfterResponse procesa el mensaje de una contraparte. hostState, si no es nil, es autoritativo
// y reemplaza al ledger antes de puntuar. Los errores de clasificacion e identidad se recuperan
// aqui: el turno queda con delta 0 y el ledger sin tocar.
func (s *TurnService) AfterResponse(ctx context.Context, msg domain.TurnMessage, hostState domain.AffectionState) (TurnOutcome, error) {
	if strings.TrimSpace(msg.SessionID) == "" {
		return TurnOutcome{}, ErrTurnInvalidInput
	}
	sess, err := s.session(ctx, msg.SessionID)
	if err != nil {
		return TurnOutcome{}, err
	}

	sess.mu.Lock()
	if hostState != nil {
		sess.ledger.Replace(hostState)
	}
	roster := sess.rosterLocked()
	sess.mu.Unlock()

	seq := msg.TurnSeq
	if seq <= 0 {
		seq = s.nextSeq(ctx, sess)
	}
	identity := ResolveSpeaker(msg, roster)

	// La clasificacion es el unico punto de espera; el ledger se toca despues.
	result, scoreErr := s.classifyAndScore(ctx, sess.id, msg.Content)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	report := domain.TurnReport{
		TurnID:      firstNonEmpty(msg.ID, uuid.NewString()),
		TurnSeq:     seq,
		Speaker:     firstNonEmpty(identity.Name, msg.AnonymizedID, "Unknown"),
		ProcessedAt: s.now(),
	}
	var logs []string
	if scoreErr == nil {
		report.Result = &result
		logs = append(logs, result.DiagnosticLog...)
	}

	switch {
	case !identity.IsResolved():
		report.Skipped = true
		report.SkipReason = SkipUnresolvedSpeaker
		if identity.Kind == domain.SpeakerNarrator {
			report.SkipReason = SkipNarrator
		}
		sess.lastSpeakerIsNarrator = identity.Kind == domain.SpeakerNarrator
		if scoreErr == nil {
			sess.narratorReadout = &domain.NarratorReadout{Speaker: report.Speaker, Emotions: result.ActiveEmotions}
		} else {
			logs = append(logs, classificationFailureLine(scoreErr))
		}
		logs = append(logs, "Narrator or unknown speaker, affection unchanged.")
		s.logger.Info("turn skipped",
			zap.String("session_id", sess.id),
			zap.String("speaker", report.Speaker),
			zap.String("reason", report.SkipReason),
		)

	case scoreErr != nil:
		sess.lastSpeakerIsNarrator = false
		report.Skipped = true
		report.SkipReason = SkipClassificationUnavailable
		if errors.Is(scoreErr, ErrUnparseableClassification) {
			report.SkipReason = SkipUnparseableClassification
		}
		key := s.relationshipKey(sess, msg, identity)
		report.Key = &key
		if current, ok := sess.ledger.Peek(key); ok {
			report.PreviousScore, report.NewScore = current, current
		} else {
			report.PreviousScore, report.NewScore = domain.AffectionDefault, domain.AffectionDefault
		}
		logs = append(logs, classificationFailureLine(scoreErr))
		s.logger.Warn("classification unavailable",
			zap.String("session_id", sess.id),
			zap.String("counterpart_id", identity.ID),
			zap.Error(scoreErr),
		)

	default:
		sess.lastSpeakerIsNarrator = false
		key := s.relationshipKey(sess, msg, identity)
		report.Key = &key
		sess.emotionBreakdown[identity.ID] = result.ActiveEmotions
		previous := sess.ledger.Get(key)
		report.PreviousScore = previous

		next, applyErr := s.applyTurn(ctx, sess, key, seq, result.Delta)
		if errors.Is(applyErr, ErrSupersededTurn) {
			report.Skipped = true
			report.SkipReason = SkipSuperseded
			report.NewScore = previous
			logs = append(logs, fmt.Sprintf("Turn %d superseded by a newer turn, affection unchanged.", seq))
			s.logger.Info("turn superseded",
				zap.String("session_id", sess.id),
				zap.String("relationship", key.String()),
				zap.Int64("turn_seq", seq),
			)
			break
		}
		report.Delta = result.Delta
		report.NewScore = next
		logs = append([]string{fmt.Sprintf("[Delta for %s: %d | New: %d]", identity.ID, result.Delta, next)}, logs...)
		s.logger.Info("affection updated",
			zap.String("session_id", sess.id),
			zap.String("counterpart_id", identity.ID),
			zap.Int("delta", result.Delta),
			zap.Int("score", next),
		)
	}

	report.DiagnosticLog = strings.Join(logs, "\n")
	sess.lastTurn = &report

	outcome := TurnOutcome{Report: report, Affection: sess.ledger.Snapshot()}
	if err := s.store.Save(ctx, sess.snapshotLocked(s.now())); err != nil {
		return outcome, fmt.Errorf("save session: %w", err)
	}
	if s.history != nil {
		// El historial es auxiliar: un fallo no revierte el turno ya aplicado.
		if err := s.history.Record(ctx, sess.id, report); err != nil {
			s.logger.Warn("turn history record failed", zap.Error(err), zap.String("session_id", sess.id))
		}
	}
	return outcome, nil
}

func (s *TurnService) classifyAndScore(ctx context.Context, sessionID, text string) (domain.ScoringResult, error) {
	if s.classifier == nil {
		return domain.ScoringResult{}, fmt.Errorf("%w: no classifier configured", ErrClassificationUnavailable)
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, sessionID) {
		return domain.ScoringResult{}, fmt.Errorf("%w: rate limited", ErrClassificationUnavailable)
	}
	raw, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	return s.pipeline.ScoreRaw(raw)
}

// applyTurn consulta el secuenciador compartido y luego el chequeo local del ledger.
func (s *TurnService) applyTurn(ctx context.Context, sess *SessionState, key domain.RelationshipKey, seq int64, delta int) (int, error) {
	committed, err := s.sequencer.Commit(ctx, sess.id+":"+key.String(), seq)
	if err != nil {
		s.logger.Warn("turn sequencer commit failed", zap.Error(err), zap.String("session_id", sess.id))
	}
	if !committed {
		return 0, ErrSupersededTurn
	}
	return sess.ledger.ApplyTurn(key, seq, delta)
}

func (s *TurnService) nextSeq(ctx context.Context, sess *SessionState) int64 {
	seq, err := s.sequencer.Next(ctx, sess.id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err != nil {
		s.logger.Warn("turn sequencer unavailable", zap.Error(err), zap.String("session_id", sess.id))
		sess.nextTurnSeq++
		return sess.nextTurnSeq
	}
	// Un contador en memoria reinicia tras un restart; nunca se reusa una secuencia ya persistida.
	if seq <= sess.nextTurnSeq {
		seq = sess.nextTurnSeq + 1
	}
	sess.nextTurnSeq = seq
	return seq
}

func (s *TurnService) relationshipKey(sess *SessionState, msg domain.TurnMessage, identity domain.SpeakerIdentity) domain.RelationshipKey {
	subject := strings.TrimSpace(msg.SubjectID)
	if subject == "" && len(sess.subjectIDs) > 0 {
		subject = sess.subjectIDs[0]
	}
	if subject == "" {
		subject = defaultSubjectID
	}
	return domain.RelationshipKey{SubjectID: subject, CounterpartID: identity.ID}
}

func classificationFailureLine(err error) string {
	if errors.Is(err, ErrUnparseableClassification) {
		return "Emotion classification unparseable: " + err.Error()
	}
	return "Emotion classification failed: " + err.Error()
}

// session busca la sesion en memoria y, si no esta, la carga del store.
func (s *TurnService) session(ctx context.Context, sessionID string) (*SessionState, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	snap, found, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return s.register(sessionFromSnapshot(snap)), nil
}

// register guarda la sesion salvo que otra llamada ya la haya registrado.
func (s *TurnService) register(sess *SessionState) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sess.id]; ok {
		return existing
	}
	s.sessions[sess.id] = sess
	return sess
}
