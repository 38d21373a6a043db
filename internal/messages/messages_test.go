package messages

import "testing"

func TestForKnownLanguages(t *testing.T) {
	if For("en").Welcome == "" || For("es").Welcome == "" {
		t.Fatal("both catalogs must be populated")
	}
	if For("en").Welcome == For("es").Welcome {
		t.Fatal("expected distinct texts per language")
	}
}

func TestForFallsBackToEnglish(t *testing.T) {
	english := For("en")
	for _, lang := range []string{"", "fr", "de-DE", "unknown"} {
		if got := For(lang); got != english {
			t.Fatalf("For(%q) did not fall back to english", lang)
		}
	}
}

func TestForStripsRegionSubtag(t *testing.T) {
	if got := For("es-MX"); got != For("es") {
		t.Fatal("expected the region subtag to be ignored")
	}
	if got := For(" ES "); got != For("es") {
		t.Fatal("expected case and whitespace to be ignored")
	}
}
