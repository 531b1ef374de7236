package translate

import "testing"

func TestIsValidTranslationRejectsEcho(t *testing.T) {
	for _, value := range []string{"Shrek", "шрек", "Kung Fu Panda", "  Frozen  ", "Ёлка"} {
		if IsValidTranslation(value, value) {
			t.Fatalf("IsValidTranslation(%q, %q) must be false", value, value)
		}
	}
	if IsValidTranslation("Shrek", "SHREK") {
		t.Fatal("echo check must ignore case")
	}
	if IsValidTranslation("Шрек", " шрек ") {
		t.Fatal("echo check must ignore case and surrounding space")
	}
}

func TestIsValidTranslationRejectsURLsAndEmpty(t *testing.T) {
	for _, value := range []string{"http://example.com", "https://translate.google.com/?q=x", "", "   "} {
		if IsValidTranslation("Shrek", value) {
			t.Fatalf("IsValidTranslation(Shrek, %q) must be false", value)
		}
	}
}

func TestIsValidTranslationAccepts(t *testing.T) {
	cases := map[string]string{
		"Холодное сердце": "Frozen",
		"Shrek":           "Шрек",
		"Kung Fu Panda":   "Kung-fu panda: the legend",
		"Muzlagan yurak":  "Холодное сердце",
	}
	for original, translated := range cases {
		if !IsValidTranslation(original, translated) {
			t.Fatalf("IsValidTranslation(%q, %q) must be true", original, translated)
		}
	}
}
