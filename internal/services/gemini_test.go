package services

import "testing"

func TestParseSceneJSON(t *testing.T) {
	raw := "```json\n{\"scene1\": \"hero reveal\", \"scene2\": \"side pan\", \"scene3\": \"orbit\", \"scene4\": \"macro detail\"}\n```"

	scenes := ParseSceneJSON(raw)
	if len(scenes) != 4 {
		t.Fatalf("expected 4 scenes, got %d", len(scenes))
	}
	if scenes["scene1"] != "hero reveal" {
		t.Errorf("scene1 = %q", scenes["scene1"])
	}
	if scenes["scene4"] != "macro detail" {
		t.Errorf("scene4 = %q", scenes["scene4"])
	}
}

func TestParseSceneJSONWithoutFences(t *testing.T) {
	scenes := ParseSceneJSON(`{"scene1": "a", "scene2": "b"}`)
	if len(scenes) != 2 || scenes["scene2"] != "b" {
		t.Errorf("unexpected scenes: %v", scenes)
	}
}

func TestParseSceneJSONMalformed(t *testing.T) {
	scenes := ParseSceneJSON("Sure! Here are your scenes: scene1 is a hero shot...")
	if scenes == nil {
		t.Fatal("expected non-nil map")
	}
	if len(scenes) != 0 {
		t.Errorf("expected empty map for malformed input, got %v", scenes)
	}
}
