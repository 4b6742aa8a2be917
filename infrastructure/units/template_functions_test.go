package units

import (
	"bytes"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTemplateFuncMap(t *testing.T) {
	funcMap := GetTemplateFuncMap()

	for _, name := range []string{
		"add", "pct", "band", "title", "humanize",
		"lower", "upper", "trim", "truncate", "indent", "join",
	} {
		assert.Contains(t, funcMap, name)
	}
}

func TestTemplateFunctions_Render(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     any
		want     string
	}{
		{
			name:     "pct rounds weights",
			template: `{{pct 0.35}} {{pct 0.1}} {{pct 0.333}}`,
			want:     "35% 10% 33%",
		},
		{
			name:     "band",
			template: `{{band 90 100}}`,
			want:     "90-100",
		},
		{
			name:     "criterion heading",
			template: `{{upper (humanize "impact_memorability")}} / {{title (humanize "literary_craft")}}`,
			want:     "IMPACT MEMORABILITY / Literary Craft",
		},
		{
			name:     "add converts to one-based",
			template: `{{range $i, $c := .}}{{add $i 1}}.{{$c}} {{end}}`,
			data:     []string{"a", "b"},
			want:     "1.a 2.b ",
		},
		{
			name:     "indent multiline",
			template: `{{indent 2 .}}`,
			data:     "Dear Sarah,\nYours truly",
			want:     "  Dear Sarah,\n  Yours truly",
		},
		{
			name:     "join and trim",
			template: `{{join . ", "}}|{{trim "  x  "}}|{{lower "ABC"}}`,
			data:     []string{"terrible", "mediocre"},
			want:     "terrible, mediocre|x|abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := template.New("t").Funcs(GetTemplateFuncMap()).Parse(tt.template)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, tmpl.Execute(&buf, tt.data))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		length int
		want   string
	}{
		{"no truncation", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"ellipsis", "hello world", 8, "hello..."},
		{"short limit without ellipsis", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"negative", "hello", -1, ""},
		{"multibyte kept whole", "mon cœur éternel", 8, "mon c..."},
		{"emoji", "💌💌💌💌💌", 4, "💌..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateRunes(tt.input, tt.length))
		})
	}
}

func TestIndent_NoOp(t *testing.T) {
	indent := GetTemplateFuncMap()["indent"].(func(int, string) string)

	assert.Equal(t, "x", indent(0, "x"))
	assert.Equal(t, "", indent(4, ""))
}
