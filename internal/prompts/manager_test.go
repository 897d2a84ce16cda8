package prompts

import (
	"strings"
	"testing"
)

func TestPromptManagerBuildPrompt(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	data := PromptData{
		Prompt:     "find the kth largest element",
		Topic:      "heaps",
		Difficulty: "medium",
	}
	prompt, err := pm.BuildPrompt(ModeChallenge, "medium", data)
	if err != nil {
		t.Fatalf("BuildPrompt error: %v", err)
	}

	if len(prompt) == 0 || !containsAll(prompt, []string{"find the kth largest element", "heaps", "privateTestCases", "Difficulty: Medium"}) {
		t.Fatalf("prompt did not contain expected values: %s", prompt)
	}

	if _, err := pm.BuildPrompt("unknown", "medium", data); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	if _, err := pm.BuildPrompt(ModeChallenge, "missing", data); err == nil {
		t.Fatalf("expected error for missing variant")
	}

	if len(pm.GetTemplates()) == 0 {
		t.Fatalf("expected templates to be loaded")
	}
}

func TestPromptManagerTopicDefaults(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	prompt, err := pm.BuildPrompt(ModeMCQ, "easy", PromptData{Prompt: "stacks"})
	if err != nil {
		t.Fatalf("BuildPrompt error: %v", err)
	}
	if !containsAll(prompt, []string{"Topic: any", "CORRECT:", "OPTIONS:"}) {
		t.Fatalf("mcq prompt missing labels: %s", prompt)
	}
}

func TestPromptManagerMissingKey(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	if _, err := pm.BuildPrompt(ModeChallenge, "easy", map[string]string{"Prompt": "x"}); err == nil {
		t.Fatalf("expected error for missing template key")
	}
}

func TestGetTemplatesListsEveryVariant(t *testing.T) {
	pm, err := NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	want := []string{"challenge/easy", "challenge/hard", "challenge/medium", "mcq/easy", "mcq/hard", "mcq/medium"}
	got := pm.GetTemplates()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func containsAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
