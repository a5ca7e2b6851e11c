package classifier

import (
	"testing"
)

func TestNewSelectsImplementation(t *testing.T) {
	cls, err := New(Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cls.(*KeywordClassifier); !ok {
		t.Fatalf("expected keyword classifier by default, got %T", cls)
	}

	cls, err = New(Options{Mode: "http", URL: "http://localhost:9000/classify"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cls.(*HTTPClient); !ok {
		t.Fatalf("expected http client, got %T", cls)
	}

	cls, err = New(Options{Mode: "llm", LLMAPIKey: "key", Labels: []string{"joy"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm, ok := cls.(*LLMClassifier); !ok || llm.baseURL != "https://api.openai.com/v1" {
		t.Fatalf("expected llm classifier with default base url, got %T", cls)
	}
}

func TestNewRejectsIncompleteOptions(t *testing.T) {
	cases := []Options{
		{Mode: "http"},
		{Mode: "llm"},
		{Mode: "oracle"},
	}
	for _, opts := range cases {
		if _, err := New(opts, nil); err == nil {
			t.Fatalf("expected error for %+v", opts)
		}
	}
}
