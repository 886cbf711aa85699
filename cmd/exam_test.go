package cmd

import "testing"

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers([]string{"pv-1=0", "add-2=3"})
	if err != nil {
		t.Fatalf("parseAnswers() error = %v", err)
	}
	if got["pv-1"] != 0 || got["add-2"] != 3 || len(got) != 2 {
		t.Errorf("parseAnswers() = %v", got)
	}

	for _, bad := range []string{"pv-1", "=2", "pv-1=x"} {
		if _, err := parseAnswers([]string{bad}); err == nil {
			t.Errorf("parseAnswers(%q) error = nil, want error", bad)
		}
	}
}
