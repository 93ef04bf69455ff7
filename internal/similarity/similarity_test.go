package similarity

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"markup punctuation and case", " Hello <b>World</b>! ", "hello world"},
		{"whitespace runs collapse", "fix\t\tthe   login\n\nbug", "fix the login bug"},
		{"multi-line tag", "<div\nclass=\"x\">Body</div>", "body"},
		{"escaped markup is stripped", "&lt;p&gt;Crash&lt;/p&gt; on save", "crash on save"},
		{"non-breaking space entity", "a&nbsp;&nbsp;b", "a b"},
		{"punctuation only", ".,/#!$%^&*;:{}=-_`~()", ""},
		{"unicode kept", "Ünïcödé <i>Tëst</i>", "ünïcödé tëst"},
		{"digits kept", "Error 503 (Gateway)", "error 503 gateway"},
		{"other symbols kept", "a+b=c?", "a+bc?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	inputs := []string{
		"<p>Login <strong>fails</strong> when   password has #special chars!</p>",
		"  <ul><li>Step 1: open app;</li><li>Step 2: click {Save}</li></ul>  ",
		"ALL CAPS -- with_underscores ~ and `ticks`",
		"<br/><br/>",
		"  leading nbsp and trailing tabs\t\t",
		"零 <b>一</b>   二",
	}

	for _, in := range inputs {
		out := Normalize(in)

		assert.NotContains(t, out, "<", "input %q", in)
		assert.NotContains(t, out, ">", "input %q", in)
		assert.False(t, strings.ContainsAny(out, punctuation), "input %q produced %q", in, out)
		assert.Equal(t, strings.ToLower(out), out)
		assert.Equal(t, strings.TrimSpace(out), out)

		prevSpace := false
		for _, r := range out {
			isSpace := unicode.IsSpace(r)
			assert.False(t, prevSpace && isSpace, "whitespace run in %q", out)
			prevSpace = isSpace
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1},
		{"one empty", "a", "", 0},
		{"single chars identical", "a", "a", 1},
		{"single chars differ", "a", "b", 0},
		{"identical phrase", "hello world", "hello world", 1},
		{"whitespace ignored", "hello world", "helloworld", 1},
		{"no overlap", "abc", "xyz", 0},
		// night: ni ig gh ht / nacht: na ac ch ht -> 2*1/8
		{"partial overlap", "night", "nacht", 0.25},
		// repeated pairs only count as often as they appear on both sides
		{"multiplicity capped", "aaaa", "aa", 2.0 * 1 / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScoreExactIdentity(t *testing.T) {
	assert.Equal(t, 1.0, Score("hello world", "hello world"))
	assert.Equal(t, 1.0, Score("", ""))
	assert.Equal(t, 0.0, Score("a", ""))
}

func TestScoreProperties(t *testing.T) {
	samples := []string{
		"",
		"a",
		"fix login bug",
		"fix logout bug",
		"totally unrelated",
		"crash when saving a very long description",
		"ünïcödé tëst",
		"aaaaaaa",
	}

	for _, a := range samples {
		if a != "" {
			assert.Equal(t, 1.0, Score(a, a), "score(%q, %q)", a, a)
		}
		for _, b := range samples {
			ab := Score(a, b)
			ba := Score(b, a)
			assert.Equal(t, ab, ba, "score must be symmetric for %q / %q", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}

func TestScoreOnNormalizedText(t *testing.T) {
	a := Normalize("<p>Fix login bug</p>")
	b := Normalize("fix   LOGIN bug!")

	assert.Equal(t, 1.0, Score(a, b))
	assert.Less(t, Score(Normalize("Fix login bug"), Normalize("Totally unrelated")), 0.8)
}
