package classifier

import "context"

// MockClient permite tests sin llamar a un modelo real.
type MockClient struct {
	Response string
	Err      error
	Calls    int
	LastText string
}

func (m *MockClient) Classify(ctx context.Context, text string) ([]byte, error) {
	m.Calls++
	m.LastText = text
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte(m.Response), nil
}
