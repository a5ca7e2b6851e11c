package domain

import "time"

// TurnMessage es el mensaje de una contraparte entregado por el host despues de generar.
type TurnMessage struct {
	ID           string            `json:"id"`
	SessionID    string            `json:"session_id"`
	SubjectID    string            `json:"subject_id"`
	AnonymizedID string            `json:"anonymized_id"`
	Name         string            `json:"name,omitempty"`
	Role         string            `json:"role,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Content      string            `json:"content"`
	TurnSeq      int64             `json:"turn_seq,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
