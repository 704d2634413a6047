package sentiment

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Thanks, the product is excellent!", Positive},
		{"Adorei, muito bom!", Positive},
		{"This is terrible, I want a refund", Negative},
		{"Produto com defeito, quero cancelar", Negative},
		{"I received the package on Tuesday", Neutral},
		{"", Neutral},
		{"good but the delivery had a problem", Neutral},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	if got := Classify("EXCELENTE atendimento"); got != Positive {
		t.Fatalf("expected positive, got %q", got)
	}
}
