package textproc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeSpokenNewlineAndPeriods(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	got := n.Normalize("  .안녕하세요 개행 반갑습니다.  ")
	if got != "안녕하세요\n반갑습니다" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}

func TestNormalizeSteps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "enter keyword", in: "첫 줄 엔터 둘째 줄", want: "첫 줄\n둘째 줄"},
		{name: "line leading period", in: "one\n.  two\n three ", want: "one\ntwo\nthree"},
		{name: "no-break space after period", in: "one\n.\u00a0two", want: "one\ntwo"},
		{name: "ideographic space after period", in: "one\n.\u3000two", want: "one\ntwo"},
		{name: "only one outer period", in: "..done..", want: "done."},
		{name: "plain text", in: "Hello world", want: "Hello world"},
		{name: "only whitespace", in: " \n\t ", want: ""},
		{name: "only keyword", in: "개행", want: ""},
	}

	n := NewNormalizer(nil)
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := n.Normalize(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeIdempotentOnCleanText(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	inputs := []string{
		"  .안녕하세요 개행 반갑습니다.  ",
		"Meeting notes 엔터 - item one 엔터 - item two.",
		"The build passed. Ship it",
		"line one\n line two ",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSubstitutionsLiteralAndRegexRules(t *testing.T) {
	t.Parallel()

	path := writeRules(t, `
# literal
pull request => PR
# regex, case-insensitive by default
s/\bwhis\s*per\b/Whisper/g
`)

	subs, err := LoadSubstitutions(path, 30)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if subs.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", subs.Len())
	}

	out, err := subs.Apply("whis per pull request")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out != "Whisper PR" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSubstitutionsIterateUntilStable(t *testing.T) {
	t.Parallel()

	subs, err := LoadSubstitutions(writeRules(t, "a => b\nb => c\n"), 5)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	out, err := subs.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out != "c" {
		t.Fatalf("expected c, got %q", out)
	}
}

func TestSubstitutionsReportNonConvergence(t *testing.T) {
	t.Parallel()

	subs, err := LoadSubstitutions(writeRules(t, "x => xx\n"), 3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := subs.Apply("x"); err == nil {
		t.Fatalf("expected non-convergence error")
	}
}

func TestSubstitutionsLiteralStartingWithS(t *testing.T) {
	t.Parallel()

	subs, err := LoadSubstitutions(writeRules(t, "solid complaint => SOLID-compliant\n"), 30)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	out, _ := subs.Apply("solid complaint plan")
	if out != "SOLID-compliant plan" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSubstitutionsFirstMatchOnlyWithoutGlobal(t *testing.T) {
	t.Parallel()

	rules, err := parseSubstitutions(`s/o/0/`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out, changed := rules[0].apply("foo")
	if !changed || out != "f0o" {
		t.Fatalf("unexpected output: %q changed=%v", out, changed)
	}
}

func TestLoadSubstitutionsMissingFileIsNoop(t *testing.T) {
	t.Parallel()

	subs, err := LoadSubstitutions(filepath.Join(t.TempDir(), "missing.rules"), 0)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	out, err := subs.Apply("unchanged")
	if err != nil || out != "unchanged" {
		t.Fatalf("expected passthrough, got %q %v", out, err)
	}
}

func TestLoadSubstitutionsRejectsInvalidLines(t *testing.T) {
	t.Parallel()

	cases := []string{
		"not a rule",
		" => empty source",
		"s/unterminated",
		"s/a/b/z",
		"s/(/x/",
	}
	for _, contents := range cases {
		_, err := LoadSubstitutions(writeRules(t, contents), 30)
		if err == nil {
			t.Fatalf("expected error for %q", contents)
		}
		if !strings.Contains(err.Error(), "line 1") {
			t.Fatalf("expected line number in error, got %v", err)
		}
	}
}

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "substitutions.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}
