package service

import (
	"strings"

	"affection-tracker/internal/domain"
)

var narratorMarkers = []string{"narrator", "system"}

// ResolveSpeaker decide si el mensaje viene de una contraparte conocida, del narrador o de nadie identificable.
// Orden: nombre con marcador de narrador, rol, metadata["role"], luego el id anonimizado contra el roster.
func ResolveSpeaker(msg domain.TurnMessage, known map[string]string) domain.SpeakerIdentity {
	name := strings.TrimSpace(msg.Name)
	lowerName := strings.ToLower(name)
	for _, marker := range narratorMarkers {
		if strings.Contains(lowerName, marker) {
			return domain.Narrator(name)
		}
	}
	if isNarratorRole(msg.Role) || isNarratorRole(msg.Metadata["role"]) {
		return domain.Narrator(name)
	}

	id := strings.TrimSpace(msg.AnonymizedID)
	if id == "" {
		return domain.UnknownSpeaker(name)
	}
	knownName, ok := known[id]
	if !ok {
		return domain.UnknownSpeaker(firstNonEmpty(name, id))
	}
	return domain.Resolved(id, firstNonEmpty(name, knownName, id))
}

func isNarratorRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	return role == "narrator" || role == "system"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
