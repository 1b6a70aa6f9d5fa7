package lang

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "ru", want: "ru", wantOK: true},
		{in: " EN ", want: "en", wantOK: true},
		{in: "German", want: "de", wantOK: true},
		{in: "ua", want: "uk", wantOK: true},
		{in: "cn", want: "zh-CN", wantOK: true},
		{in: "ZH-cn", want: "zh-CN", wantOK: true},
		{in: "by", want: "be", wantOK: true},
		{in: "klingon", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Normalize(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPairKey_OrderIndependent(t *testing.T) {
	t.Parallel()
	if got := PairKey("ru", "en"); got != "en-ru" {
		t.Fatalf("PairKey(ru, en) = %q, want en-ru", got)
	}
	if PairKey("ru", "en") != PairKey("en", "ru") {
		t.Fatal("PairKey must not depend on argument order")
	}
	if got := (Pair{Primary: "uk", Secondary: "de"}).Key(); got != "de-uk" {
		t.Fatalf("Key() = %q, want de-uk", got)
	}
}

func TestHasCyrillic(t *testing.T) {
	t.Parallel()
	if !HasCyrillic("hello мир") {
		t.Error("expected Cyrillic in mixed text")
	}
	if !HasCyrillic("Ёж") {
		t.Error("expected Ё to count as Cyrillic")
	}
	if HasCyrillic("hello 123") {
		t.Error("unexpected Cyrillic in Latin text")
	}
	for _, text := range []string{"її", "ґєі", "јљњђћџ", "әғқңөұүһ"} {
		if !HasCyrillic(text) {
			t.Errorf("HasCyrillic(%q) = false, want true", text)
		}
	}
}

func TestSpeechLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		pair Pair
		want string
	}{
		{name: "cyrillic primary", text: "привет", pair: Pair{"uk", "en"}, want: "uk"},
		{name: "cyrillic secondary", text: "привет", pair: Pair{"de", "bg"}, want: "bg"},
		{name: "cyrillic without cyrillic pair", text: "привет", pair: Pair{"de", "fr"}, want: "ru"},
		{name: "latin with english", text: "hello", pair: Pair{"en", "ru"}, want: "en"},
		{name: "latin without english", text: "hallo", pair: Pair{"ru", "de"}, want: "de"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SpeechLanguage(tt.text, tt.pair); got != tt.want {
				t.Fatalf("SpeechLanguage(%q, %+v) = %q, want %q", tt.text, tt.pair, got, tt.want)
			}
		})
	}
}

func TestSupportedSortedByName(t *testing.T) {
	t.Parallel()
	all := Supported()
	if len(all) == 0 {
		t.Fatal("no supported languages")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("not sorted at %d: %q > %q", i, all[i-1].Name, all[i].Name)
		}
	}
	if Name("ru") != "Russian" {
		t.Fatalf("Name(ru) = %q, want Russian", Name("ru"))
	}
	if Name("xx") != "xx" {
		t.Fatalf("Name(xx) = %q, want xx", Name("xx"))
	}
}
