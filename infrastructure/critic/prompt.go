package critic

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-amour/infrastructure/units"
	"github.com/ahrav/go-amour/internal/domain"
)

// DefaultSystemPrompt frames every critique request.
const DefaultSystemPrompt = "You are an expert literary critic specializing in romantic literature. " +
	"Provide detailed, discriminatory evaluations using the full 0-100 scoring range."

// Band is one named range of the 0-100 quality scale.
type Band struct {
	Name        string
	Lo, Hi      int
	Description string
}

// Criterion describes one weighted rubric dimension.
type Criterion struct {
	Key      domain.Criterion
	Heading  string
	Weight   float64
	Question string
	Points   []string
}

// Anchor is a reference letter shown to the oracle with its expected range.
type Anchor struct {
	Label  string
	Lo, Hi int
	Text   string
}

// Benchmark is a famous letter the oracle is asked to compare against.
type Benchmark struct {
	Title   string
	Opening string
	Lo, Hi  int
}

// Rubric is everything the prompt says about how to score.
type Rubric struct {
	Bands        []Band
	Criteria     []Criterion
	Requirements []string
	Benchmarks   []Benchmark
	Anchors      []Anchor
}

// DefaultRubric returns the love letter rubric. Criterion weights come from
// the domain package so the prompt and the composite scorer never disagree.
func DefaultRubric() Rubric {
	return Rubric{
		Bands: []Band{
			{"exceptional", 90, 100, "Equals or surpasses Johnny Cash, Napoleon, Keats-level mastery"},
			{"excellent", 80, 89, "Professional-quality romantic writing with clear emotional impact"},
			{"good", 70, 79, "Above-average romantic expression with some distinctive elements"},
			{"adequate", 50, 69, "Competent but predictable romantic writing"},
			{"poor", 30, 49, "Below-average with significant clichés or awkward phrasing"},
			{"very_poor", 10, 29, "Confusing, inappropriate, or badly written"},
			{"failure", 0, 9, "Incoherent, offensive, or completely inappropriate"},
		},
		Criteria: []Criterion{
			{
				Key:      domain.CriterionEmotionalAuthenticity,
				Heading:  "Emotional Authenticity",
				Weight:   domain.WeightEmotionalAuthenticity,
				Question: "Does this feel genuine vs performative?",
				Points: []string{
					"Specific personal details vs generic romantic tropes",
					"Vulnerability and honesty vs superficial sentiment",
					"Unique voice vs formulaic expression",
				},
			},
			{
				Key:      domain.CriterionLiteraryCraft,
				Heading:  "Literary Craft",
				Weight:   domain.WeightLiteraryCraft,
				Question: "Technical quality of writing",
				Points: []string{
					`Fresh imagery vs tired metaphors ("roses are red" = automatic 0)`,
					"Rhythm, flow, and sentence variety",
					"Word choice precision and sophistication",
				},
			},
			{
				Key:      domain.CriterionImpactMemorability,
				Heading:  "Impact & Memorability",
				Weight:   domain.WeightImpactMemorability,
				Question: "Would this move someone to tears?",
				Points: []string{
					"Emotional resonance and depth",
					"Unforgettable phrases or concepts",
					"Ability to capture complex feelings",
				},
			},
			{
				Key:      domain.CriterionOriginality,
				Heading:  "Originality",
				Weight:   domain.WeightOriginality,
				Question: "Creative distinctiveness",
				Points: []string{
					"Novel approaches to expressing love",
					"Unexpected but effective imagery",
					"Avoidance of romantic clichés",
				},
			},
		},
		Requirements: []string{
			"USE FULL 0-100 RANGE - most letters should score 30-70",
			"BE EXTREMELY STRICT - only true masterpieces deserve 90+",
			"JUSTIFY SCORES with specific textual evidence",
			"IDENTIFY both strengths and weaknesses",
			"Compare implicitly to the greatest love letters in history",
		},
		Benchmarks: []Benchmark{
			{"Johnny Cash to June Carter", "You still fascinate and inspire me...", 95, 100},
			{"Napoleon to Josephine", "I have not spent a day without loving you...", 90, 95},
			{"John Keats to Fanny Brawne", "I cannot exist without you...", 85, 90},
		},
		Anchors: []Anchor{
			{
				Label: "terrible",
				Lo:    0, Hi: 20,
				Text: "hey babe ur hot lol wanna date? i like ur face and stuff. roses r red violets r blue " +
					"sugar is sweet and so r u. call me maybe??? love, some guy",
			},
			{
				Label: "mediocre",
				Lo:    40, Hi: 60,
				Text: "Dear Sarah, I've been thinking about you a lot lately. There's something special about " +
					"the way you see the world. Your passion for environmental science is inspiring. I hope " +
					"this isn't too forward, but I wanted you to know that you've become someone very " +
					"important to me. Yours truly, Michael",
			},
			{
				Label: "excellent",
				Lo:    60, Hi: 75,
				Text: "Elena, Three months ago, you told me that time moves differently when you're looking " +
					"through a microscope. Yesterday, when you rescued that spider from the lab sink instead " +
					"of washing it down the drain, I saw something that made my chest tighten in the most " +
					"wonderful way. These small revelations about who you are have begun to rewrite something " +
					"fundamental in me. Hopefully yours, David",
			},
		},
	}
}

const promptTemplate = `You are an expert literary critic specializing in romantic literature and love letters.

EVALUATION STANDARDS:
{{- range .Rubric.Bands}}
- {{upper (humanize .Name)}} ({{band .Lo .Hi}}): {{.Description}}
{{- end}}

SCORING CRITERIA (Rate 0-100 for each):
{{range $i, $c := .Rubric.Criteria}}
{{add $i 1}}. {{upper $c.Heading}} ({{pct $c.Weight}}): {{$c.Question}}
{{- range $c.Points}}
   - {{.}}
{{- end}}
{{end}}
EVALUATION REQUIREMENTS:
{{- range .Rubric.Requirements}}
- {{.}}
{{- end}}

FAMOUS LOVE LETTER BENCHMARKS:
{{- range .Rubric.Benchmarks}}
- {{.Title}}: "{{.Opening}}" ({{band .Lo .Hi}})
{{- end}}
{{- if .Rubric.Anchors}}

CALIBRATION LETTERS:
{{- range .Rubric.Anchors}}
{{title .Label}} ({{band .Lo .Hi}}):
{{indent 2 .Text}}
{{- end}}
{{- end}}

LOVE LETTER TO EVALUATE:
{{.Letter}}

Return JSON format:
{
{{- range .Rubric.Criteria}}
    "{{.Key}}": [0-100 score],
{{- end}}
    "overall_score": [weighted average: {{range $i, $c := .Rubric.Criteria}}{{if $i}} + {{end}}{{pct $c.Weight}}{{end}}],
    "strengths": "[specific textual examples]",
    "weaknesses": "[specific areas for improvement]",
    "comparison_notes": "[how this compares to literary standards]"
}
`

// PromptBuilder renders critique requests from a Rubric.
type PromptBuilder struct {
	rubric Rubric
	tmpl   *template.Template
}

// NewPromptBuilder compiles the critique template for rubric.
func NewPromptBuilder(rubric Rubric) (*PromptBuilder, error) {
	if len(rubric.Criteria) == 0 {
		return nil, fmt.Errorf("rubric must define at least one criterion")
	}

	tmpl, err := template.New("critique").Funcs(units.GetTemplateFuncMap()).Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse critique template: %w", err)
	}

	return &PromptBuilder{rubric: rubric, tmpl: tmpl}, nil
}

// Build renders the request for text. The letter is NFC-normalized and
// trimmed so visually identical letters produce identical prompts.
func (b *PromptBuilder) Build(text domain.JudgedText) (string, error) {
	data := struct {
		Rubric Rubric
		Letter string
	}{
		Rubric: b.rubric,
		Letter: strings.TrimSpace(norm.NFC.String(text.String())),
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render critique prompt: %w", err)
	}
	return buf.String(), nil
}
