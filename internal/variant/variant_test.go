package variant

import (
	"slices"
	"testing"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want []string
	}{
		{word: "Ян", want: []string{"Ян", "Яна", "Яну", "Яном", "Яне"}},
		{word: "Дмитрий", want: []string{"Дмитрий", "Дмитрия", "Дмитрию", "Дмитрием", "Дмитрие", "Дмитрии"}},
		{word: "Анна", want: []string{"Анна", "Анны", "Анне", "Анну", "Анной"}},
		{word: "Мария", want: []string{"Мария", "Марии", "Марию", "Марией"}},
		{word: "Илья", want: []string{"Илья", "Ильи", "Илье", "Илью", "Ильей", "Ильёй"}},
		{word: "Игорь", want: []string{"Игорь", "Игоря", "Игорю", "Игорем", "Игоре", "Игори", "Игорью"}},
		{word: "АННА", want: []string{"АННА", "АННы", "АННе", "АННу", "АННой"}},
		{word: "  Ян  ", want: []string{"Ян", "Яна", "Яну", "Яном", "Яне"}},
		{word: "Bob", want: []string{"Bob"}},
		{word: "Сан Франциско", want: []string{"Сан Франциско"}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			got := Generate(tt.word)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Generate(%q) = %q, want %q", tt.word, got, tt.want)
			}
		})
	}
}

func TestGenerate_Empty(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   "} {
		if got := Generate(in); len(got) != 0 {
			t.Fatalf("Generate(%q) = %q, want empty", in, got)
		}
	}
}

func TestGenerate_AlwaysContainsWord(t *testing.T) {
	t.Parallel()
	for _, w := range []string{"Ян", "кот", "Мая", "ночь", "x", "ия", "мир"} {
		if got := Generate(w); !slices.Contains(got, w) {
			t.Fatalf("Generate(%q) = %q, missing the word itself", w, got)
		}
	}
}
