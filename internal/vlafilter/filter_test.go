package vlafilter

import "testing"

func TestRelated(t *testing.T) {
	cases := []struct {
		title    string
		abstract string
		want     bool
	}{
		{"MAP-VLA: Memory-Augmented Prompting for Vision-Language-Action Model", "", true},
		{"Audio-VLA: Adding Contact Audio to VLA model", "", true},
		{"Training VLA policy for robotic manipulation", "", true},
		{"A new VLA framework for embodied AI", "", true},
		{"", "We propose a Vision-Language-Action model for robots", true},
		{"", "Our vision language action approach improves performance", true},

		{"Large Vision-Language Models for Visual Understanding", "", false},
		{"LVLM: A new approach to vision-language tasks", "", false},
		{"Embodied AI with foundation models", "", false},
		{"Multimodal Learning for Robotics", "", false},
		// Bare acronym in a non-robotics context.
		{"VLA in finance: value-at-risk analysis", "", false},
		// Hyphenated forms never count as a standalone token.
		{"A VLA-based controller for manipulation", "uses a vla-style framework", false},
		{"", "", false},
	}
	for _, c := range cases {
		got := Related(c.title, c.abstract)
		if got != c.want {
			t.Errorf("Related(%q, %q) = %v, want %v", c.title, c.abstract, got, c.want)
		}
	}
}

func TestHasVLAToken(t *testing.T) {
	if hasVLAToken("vlad the impaler") {
		t.Error("vlad should not count as a vla token")
	}
	if !hasVLAToken("our vla policy") {
		t.Error("expected standalone vla token")
	}
	if !hasVLAToken("vla model training") {
		t.Error("expected token at start of text")
	}
	if hasVLAToken("vla-based grasping") {
		t.Error("hyphenated vla should not count as a token")
	}
}
