package catalog

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	wantOrder := []string{"alcohol", "drink", "drug", "gambl", "smok", "crav", "stress", "anxi", "help", "struggling"}
	if got := c.Keywords(); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("keyword order = %v, want %v", got, wantOrder)
	}
	if c.Default() == "" || c.Welcome() == "" || c.Fallback() == "" {
		t.Error("default, welcome, and fallback texts must all be non-empty")
	}
}

func TestSelect_KeywordMatch(t *testing.T) {
	c := MustLoad()

	cases := []struct {
		name    string
		text    string
		keyword string
	}{
		{"plain keyword", "I had a drink yesterday", "drink"},
		{"uppercase input", "STRUGGLING so much today", "struggling"},
		{"keyword as substring", "my anxiety is back", "anxi"},
		{"gambling stem", "I want to gamble again", "gambl"},
		{"smoking stem", "almost smoked at lunch", "smok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := c.ByType(tc.keyword)
			if got := c.Select(tc.text); got != want {
				t.Errorf("Select(%q) picked the wrong response", tc.text)
			}
		})
	}
}

func TestSelect_FirstDeclaredWins(t *testing.T) {
	c := MustLoad()

	// Contains both "alcohol" and "crav"; alcohol is declared first.
	got := c.Select("I'm really craving alcohol tonight")
	if got != c.ByType("alcohol") {
		t.Error("expected the alcohol response (declared first) to win")
	}
	if got == c.ByType("crav") {
		t.Error("crav response must not win over alcohol")
	}
}

func TestSelect_NoMatch(t *testing.T) {
	c := MustLoad()
	if got := c.Select("just saying hello"); got != c.Default() {
		t.Errorf("unmatched text should yield the default response")
	}
	if got := c.Select(""); got != c.Default() {
		t.Errorf("empty text should yield the default response")
	}
}

func TestByType(t *testing.T) {
	c := MustLoad()
	if c.ByType("Alcohol") != c.ByType("alcohol") {
		t.Error("ByType should be case-insensitive")
	}
	if c.ByType("knitting") != c.Default() {
		t.Error("unknown type should fall back to the default response")
	}
}

func TestPersonalize(t *testing.T) {
	cases := []struct {
		name     string
		response string
		first    string
		want     string
	}{
		{"hey prefix", "Hey, you've got this.", "Sam", "Hey Sam, you've got this."},
		{"hi there prefix", "Hi there, keep going.", "Sam", "Hi Sam, keep going."},
		{"placeholder name skipped", "Hey, you've got this.", "friend", "Hey, you've got this."},
		{"empty name skipped", "Hey, you've got this.", "", "Hey, you've got this."},
		{"no prefix untouched", "You are doing great.", "Sam", "You are doing great."},
		{"only first occurrence", "Hey, one. Hey, two.", "Sam", "Hey Sam, one. Hey, two."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Personalize(tc.response, tc.first); got != tc.want {
				t.Errorf("Personalize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPersonalize_CatalogGreetings(t *testing.T) {
	c := MustLoad()
	got := Personalize(c.ByType("alcohol"), "Sam")
	if !strings.HasPrefix(got, "Hey Sam,") {
		t.Errorf("personalized alcohol response should start with %q, got %q", "Hey Sam,", got[:20])
	}
	got = Personalize(c.ByType("gambl"), "Sam")
	if !strings.HasPrefix(got, "Hi Sam,") {
		t.Errorf("personalized gambling response should start with %q", "Hi Sam,")
	}
}
