package flow

import "testing"

func TestIsGreeting_Matches(t *testing.T) {
	cases := []string{
		"Привет!",
		"привет",
		"Здравствуйте",
		"Добрый день",
		"добрый вечер!",
		"hello",
		"Hi",
		"ку",
		"Привет, а сколько стоит альбом?",
		"Здравствуйтеее",
	}
	for _, c := range cases {
		if !IsGreeting(c) {
			t.Errorf("IsGreeting(%q) = false, want true", c)
		}
	}
}

func TestIsGreeting_NonMatches(t *testing.T) {
	cases := []string{
		"",
		"Сколько стоит альбом для школы?",
		"хочу пройти опрос",
		"когда будет съёмка",
		"а сколько стоит общий альбом в детском саду если нас двадцать",
	}
	for _, c := range cases {
		if IsGreeting(c) {
			t.Errorf("IsGreeting(%q) = true, want false", c)
		}
	}
}

func TestIsGreeting_LongTextOpeningWithGreeting(t *testing.T) {
	// over the short-text limit, but the opening token still classifies
	if !IsGreeting("Привет, а сколько стоит индивидуальный альбом?") {
		t.Error("text opening with a greeting must classify as a greeting")
	}
	// the same greeting word later in the text does not
	if IsGreeting("подскажите стоимость и передайте привет фотографу") {
		t.Error("greeting word mid-text must not classify the text")
	}
}
