package classifier

import "context"

// Classifier envia el texto del mensaje a un modelo de emociones y devuelve la respuesta cruda.
// La interpretacion de la forma (lista plana, data, confidences) la hace el normalizador.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]byte, error)
}
