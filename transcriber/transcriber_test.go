package transcriber

import "testing"

func TestNewExplicitProvider(t *testing.T) {
	trans, err := New(Options{Provider: "groq", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if trans.Name() != "groq" {
		t.Errorf("Name = %q, want groq", trans.Name())
	}
}

func TestNewExplicitProviderMissingKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	if _, err := New(Options{Provider: "groq"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNewPicksProviderByEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "k")
	trans, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if trans.Name() != "openai" {
		t.Errorf("Name = %q, want openai", trans.Name())
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "deepgram"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
