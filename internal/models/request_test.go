package models

import (
	"strings"
	"testing"
)

func expectErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %s but got nil", code)
	}
	resp, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", err)
	}
	if resp.Code != code {
		t.Fatalf("expected error code %s, got %s", code, resp.Code)
	}
}

func TestErrorResponse_Error(t *testing.T) {
	err := &ErrorResponse{Message: "failed"}
	if err.Error() != "failed" {
		t.Fatalf("expected message to be returned, got %s", err.Error())
	}
}

func TestValidDifficultiesList(t *testing.T) {
	if got := strings.Join(ValidDifficultiesList(), ","); got != "easy,medium,hard" {
		t.Fatalf("unexpected difficulties: %s", got)
	}
}

func TestParseDifficulty(t *testing.T) {
	cases := map[string]Difficulty{"easy": Easy, " MEDIUM ": Medium, "Hard": Hard}
	for in, want := range cases {
		got, ok := ParseDifficulty(in)
		if !ok || got != want {
			t.Fatalf("ParseDifficulty(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseDifficulty("expert"); ok {
		t.Fatal("expected expert to be rejected")
	}
}

func TestDegradationOutcome(t *testing.T) {
	if (DegradationInfo{}).Outcome() != OutcomeClean {
		t.Fatal("expected clean outcome")
	}
	if (DegradationInfo{WasRepaired: true}).Outcome() != OutcomeRepaired {
		t.Fatal("expected repaired outcome")
	}
	if (DegradationInfo{WasRepaired: true, IsFallback: true}).Outcome() != OutcomeFallback {
		t.Fatal("expected fallback to win over repaired")
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	t.Run("missing prompt", func(t *testing.T) {
		req := &GenerateRequest{Prompt: "   "}
		expectErrCode(t, req.Validate(), "missing_prompt")
	})

	t.Run("prompt too long", func(t *testing.T) {
		req := &GenerateRequest{Prompt: strings.Repeat("a", MaxPromptLength+1)}
		expectErrCode(t, req.Validate(), "prompt_too_long")
	})

	t.Run("invalid difficulty", func(t *testing.T) {
		req := &GenerateRequest{Prompt: "two sum", Difficulty: "expert"}
		err := req.Validate()
		expectErrCode(t, err, "invalid_difficulty")
		if !strings.Contains(err.Error(), "easy, medium, hard") {
			t.Fatalf("expected accepted difficulties in message, got %s", err.Error())
		}
	})

	t.Run("valid request normalizes values", func(t *testing.T) {
		req := &GenerateRequest{Prompt: "  two sum ", Difficulty: " HARD ", Topic: " arrays "}
		if err := req.Validate(); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if req.Prompt != "two sum" || req.Difficulty != "hard" || req.Topic != "arrays" {
			t.Fatalf("request not normalized: %+v", req)
		}
	})

	t.Run("default difficulty", func(t *testing.T) {
		req := &GenerateRequest{Prompt: "two sum"}
		if err := req.Validate(); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if req.Difficulty != "medium" {
			t.Fatalf("expected default medium, got %s", req.Difficulty)
		}
	})
}

func TestBatchGenerateRequestValidate(t *testing.T) {
	expectErrCode(t, (&BatchGenerateRequest{}).Validate(), "missing_items")

	tooMany := &BatchGenerateRequest{Items: make([]GenerateRequest, MaxBatchItems+1)}
	expectErrCode(t, tooMany.Validate(), "too_many_items")

	mixed := &BatchGenerateRequest{Items: []GenerateRequest{{Prompt: "ok"}, {Prompt: ""}}}
	err := mixed.Validate()
	expectErrCode(t, err, "invalid_items")
	details := err.(*ErrorResponse).Details
	if len(details) != 1 || details[0].Field != "items[1]" || details[0].Reason != "missing_prompt" {
		t.Fatalf("unexpected details: %+v", details)
	}
}

func TestExtractRequestsValidate(t *testing.T) {
	expectErrCode(t, (&ExtractChallengeRequest{}).Validate(), "missing_input")
	if err := (&ExtractChallengeRequest{Prompt: "only a prompt"}).Validate(); err != nil {
		t.Fatalf("expected prompt-only extraction to be accepted, got %v", err)
	}
	expectErrCode(t, (&ExtractMCQRequest{RawText: " "}).Validate(), "missing_raw_text")
	expectErrCode(t, (&FeedbackRequest{}).Validate(), "missing_is_positive")
}
