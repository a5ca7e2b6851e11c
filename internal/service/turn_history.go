package service

import (
	"context"
	"errors"
	"strings"

	"affection-tracker/internal/domain"
	"affection-tracker/internal/repository"
)

// TurnHistoryService guarda cada TurnReport, incluidos los turnos saltados, para auditoria.
type TurnHistoryService struct {
	repo repository.TurnReportRepository
}

var (
	ErrTurnHistoryNotConfigured = errors.New("turn history not configured")
	ErrTurnHistoryInvalidInput  = errors.New("turn history invalid input")
)

func NewTurnHistoryService(repo repository.TurnReportRepository) *TurnHistoryService {
	return &TurnHistoryService{repo: repo}
}

func (s *TurnHistoryService) Record(ctx context.Context, sessionID string, report domain.TurnReport) error {
	if s == nil || s.repo == nil {
		return ErrTurnHistoryNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.TrimSpace(report.TurnID) == "" {
		return ErrTurnHistoryInvalidInput
	}
	return s.repo.Create(ctx, sessionID, report)
}

func (s *TurnHistoryService) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.TurnReport, error) {
	if s == nil || s.repo == nil {
		return nil, ErrTurnHistoryNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return []domain.TurnReport{}, nil
	}
	reports, err := s.repo.ListBySessionID(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []domain.TurnReport{}
	}
	return reports, nil
}
