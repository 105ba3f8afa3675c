package turns

import (
	"testing"

	"voice-practice-client/internal/models"
)

func TestAggregator_FragmentsConcatenate(t *testing.T) {
	agg := NewAggregator()

	partial := agg.AddFragment(models.SpeakerUser, "I go")
	if partial != "I go" {
		t.Errorf("expected partial 'I go', got %q", partial)
	}
	partial = agg.AddFragment(models.SpeakerUser, " to school")
	if partial != "I go to school" {
		t.Errorf("expected partial 'I go to school', got %q", partial)
	}

	msgs := agg.CompleteTurn()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(msgs))
	}
	if msgs[0].Speaker != models.SpeakerUser {
		t.Errorf("expected user speaker, got %s", msgs[0].Speaker)
	}
	if msgs[0].Text != "I go to school" {
		t.Errorf("expected 'I go to school', got %q", msgs[0].Text)
	}
}

func TestAggregator_UserBeforeAssistant(t *testing.T) {
	agg := NewAggregator()

	agg.AddFragment(models.SpeakerAssistant, "Nice to meet you")
	agg.AddFragment(models.SpeakerUser, "Hello")

	msgs := agg.CompleteTurn()
	if len(msgs) != 2 {
		t.Fatalf("expected two messages, got %d", len(msgs))
	}
	if msgs[0].Speaker != models.SpeakerUser {
		t.Errorf("expected user message first, got %s", msgs[0].Speaker)
	}
	if msgs[1].Speaker != models.SpeakerAssistant {
		t.Errorf("expected assistant message second, got %s", msgs[1].Speaker)
	}
}

func TestAggregator_TrimsWhitespace(t *testing.T) {
	agg := NewAggregator()

	agg.AddFragment(models.SpeakerUser, "  hello ")
	agg.AddFragment(models.SpeakerUser, "there  ")

	msgs := agg.CompleteTurn()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if msgs[0].Text != "hello there" {
		t.Errorf("expected trimmed 'hello there', got %q", msgs[0].Text)
	}
}

func TestAggregator_EmptyTurnEmitsNothing(t *testing.T) {
	agg := NewAggregator()

	msgs := agg.CompleteTurn()
	if len(msgs) != 0 {
		t.Fatalf("expected no messages for empty turn, got %d", len(msgs))
	}

	// Next turn accumulates cleanly after the empty one.
	agg.AddFragment(models.SpeakerUser, "still works")
	msgs = agg.CompleteTurn()
	if len(msgs) != 1 || msgs[0].Text != "still works" {
		t.Fatalf("expected next turn to accumulate normally, got %v", msgs)
	}
}

func TestAggregator_WhitespaceOnlyTurnEmitsNothing(t *testing.T) {
	agg := NewAggregator()

	agg.AddFragment(models.SpeakerAssistant, "   ")
	msgs := agg.CompleteTurn()
	if len(msgs) != 0 {
		t.Fatalf("expected no messages for whitespace-only turn, got %d", len(msgs))
	}
}

func TestAggregator_AccumulatorsEmptyAfterCompletion(t *testing.T) {
	agg := NewAggregator()

	agg.AddFragment(models.SpeakerUser, "one")
	agg.AddFragment(models.SpeakerAssistant, "two")
	agg.CompleteTurn()

	user, assistant := agg.Partials()
	if user != "" || assistant != "" {
		t.Errorf("expected empty partials after completion, got %q / %q", user, assistant)
	}
}

func TestAggregator_IndependentTurns(t *testing.T) {
	agg := NewAggregator()

	agg.AddFragment(models.SpeakerUser, "first turn")
	first := agg.CompleteTurn()

	agg.AddFragment(models.SpeakerAssistant, "second turn")
	second := agg.CompleteTurn()

	if len(first) != 1 || first[0].Text != "first turn" {
		t.Errorf("unexpected first turn %v", first)
	}
	if len(second) != 1 || second[0].Text != "second turn" {
		t.Errorf("unexpected second turn %v", second)
	}
	if second[0].Speaker != models.SpeakerAssistant {
		t.Errorf("expected assistant for second turn, got %s", second[0].Speaker)
	}
}

func TestAggregator_UnknownSpeakerIgnored(t *testing.T) {
	agg := NewAggregator()

	if partial := agg.AddFragment(models.Speaker("narrator"), "boo"); partial != "" {
		t.Errorf("expected empty partial for unknown speaker, got %q", partial)
	}
	if msgs := agg.CompleteTurn(); len(msgs) != 0 {
		t.Errorf("expected no messages, got %v", msgs)
	}
}

func TestLog_AppendAndOrder(t *testing.T) {
	log := NewLog()

	log.Append(models.ChatMessage{Speaker: models.SpeakerUser, Text: "a"})
	log.Append(
		models.ChatMessage{Speaker: models.SpeakerAssistant, Text: "b"},
		models.ChatMessage{Speaker: models.SpeakerUser, Text: "c"},
	)

	msgs := log.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "a" || msgs[1].Text != "b" || msgs[2].Text != "c" {
		t.Errorf("unexpected order %v", msgs)
	}
	if log.Len() != 3 {
		t.Errorf("expected Len 3, got %d", log.Len())
	}
}

func TestLog_MessagesReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(models.ChatMessage{Speaker: models.SpeakerUser, Text: "original"})

	msgs := log.Messages()
	msgs[0].Text = "mutated"

	if log.Messages()[0].Text != "original" {
		t.Error("mutating the returned slice must not affect the log")
	}
}
