package airline

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"english stopwords", "Emirates Airlines", "emirates"},
		{"punctuation", "Qatar Airways, Ltd.", "qatar airways ltd"},
		{"only stopwords", "Air Aviation Airline", ""},
		{"arabic stopwords", "شركة طيران الإمارات", "الإمارات"},
		{"arabic diacritics", "الخُطُوطُ السَّعُودِيَّة", "السعودية"},
		{"tatweel", "الملكيــة", "الملكية"},
		{"collapses whitespace", "  Royal \t Jordanian \n ", "royal jordanian"},
		{"underscore kept", "fly_dubai", "fly_dubai"},
		{"hyphenated stopword", "Air-line", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.input); got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	inputs := []string{
		"Emirates Airlines",
		"الخطوط الجوية القطرية",
		"ΣΟΦΟΣ air",
		"İstanbul Hava Yolları",
		"Air-Arabia (G9)!!",
		"طَيَرانُ ناس",
		"",
		"   ",
	}

	for _, in := range inputs {
		once := CleanText(in)
		twice := CleanText(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
