package domain

// SpeakerKind clasifica a quien produjo un mensaje.
type SpeakerKind int

const (
	SpeakerUnknown SpeakerKind = iota
	SpeakerResolved
	SpeakerNarrator
)

func (k SpeakerKind) String() string {
	switch k {
	case SpeakerResolved:
		return "resolved"
	case SpeakerNarrator:
		return "narrator"
	default:
		return "unknown"
	}
}

// SpeakerIdentity es el resultado de resolver el hablante. ID solo vale con SpeakerResolved.
type SpeakerIdentity struct {
	Kind SpeakerKind
	ID   string
	// Name conserva el nombre crudo para diagnostico.
	Name string
}

func Resolved(id, name string) SpeakerIdentity {
	return SpeakerIdentity{Kind: SpeakerResolved, ID: id, Name: name}
}

func Narrator(name string) SpeakerIdentity {
	return SpeakerIdentity{Kind: SpeakerNarrator, Name: name}
}

func UnknownSpeaker(name string) SpeakerIdentity {
	return SpeakerIdentity{Kind: SpeakerUnknown, Name: name}
}

// IsResolved indica si el hablante es una contraparte conocida.
func (s SpeakerIdentity) IsResolved() bool {
	return s.Kind == SpeakerResolved && s.ID != ""
}
