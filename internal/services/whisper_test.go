package services

import "testing"

func TestParseWhisperJSON(t *testing.T) {
	data := []byte(`{
		"text": " Meet the lamp that changes everything.",
		"segments": [
			{
				"words": [
					{"word": " Meet", "start": 0.0, "end": 0.32},
					{"word": " the", "start": 0.32, "end": 0.48},
					{"word": " lamp", "start": 0.48, "end": 0.9}
				]
			},
			{
				"words": [
					{"word": " that", "start": 0.9, "end": 1.1},
					{"word": " changes", "start": 1.1, "end": 1.6},
					{"word": " everything.", "start": 1.6, "end": 2.2}
				]
			}
		]
	}`)

	words, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}

	if len(words) != 6 {
		t.Fatalf("words = %d, want 6", len(words))
	}
	if words[0].Word != "Meet" {
		t.Errorf("first word = %q, leading space should be trimmed", words[0].Word)
	}
	if words[5].Word != "everything." {
		t.Errorf("last word = %q", words[5].Word)
	}
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].Start {
			t.Errorf("word %d out of order: %f < %f", i, words[i].Start, words[i-1].Start)
		}
	}
}

func TestParseWhisperJSONEmptySegments(t *testing.T) {
	words, err := parseWhisperJSON([]byte(`{"segments": []}`))
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("words = %d, want 0", len(words))
	}
}

func TestParseWhisperJSONMalformed(t *testing.T) {
	if _, err := parseWhisperJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
