package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fichecode/internal/assistant"
	"fichecode/internal/config"
	"fichecode/internal/fiche"
)

func scenarioFiche() fiche.Fiche {
	return fiche.Fiche{
		Meta:      fiche.Meta{Titre: "Test"},
		Variables: []fiche.Variable{{ID: "x", Label: "X", Value: "42"}},
		AI:        fiche.Ratings{{Assistant: "chatgpt", Level: 3}},
	}
}

func TestCompile_Scenario(t *testing.T) {
	got := Compile(scenarioFiche(), map[string]string{"x": "7"}, "note")

	assert.Contains(t, got, "7")
	assert.Contains(t, got, "note")
	assert.NotContains(t, got, "42")
}

func TestCompile_FallsBackToDefault(t *testing.T) {
	got := Compile(scenarioFiche(), map[string]string{}, "")
	assert.Equal(t, "Test\n\nX : 42", got)

	got = Compile(scenarioFiche(), map[string]string{"x": "   "}, "  ")
	assert.Equal(t, "Test\n\nX : 42", got)
}

func TestCompile_MissingValueContributesNothing(t *testing.T) {
	f := fiche.Fiche{
		Meta: fiche.Meta{Titre: "Titre", Objectif: "Rédiger un courrier"},
		Variables: []fiche.Variable{
			{ID: "dest", Label: "Destinataire"},
			{ID: "ton", Value: "formel"},
		},
	}

	got := Compile(f, nil, "")
	assert.Equal(t, "Rédiger un courrier\n\nton : formel", got)
	assert.NotContains(t, got, "Destinataire")
}

func TestCompile_ExtraAlwaysLast(t *testing.T) {
	got := Compile(fiche.Fiche{}, nil, "  précise les sources ")
	assert.Equal(t, "précise les sources", got)

	got = Compile(scenarioFiche(), map[string]string{"x": "1"}, "fin")
	assert.Equal(t, "Test\n\nX : 1\n\nfin", got)
}

func TestCompile_DoesNotMutateFiche(t *testing.T) {
	f := scenarioFiche()
	_ = Compile(f, map[string]string{"x": "7"}, "note")
	assert.Equal(t, scenarioFiche(), f)
}

func TestResolve(t *testing.T) {
	f := fiche.Fiche{Variables: []fiche.Variable{
		{ID: "a", Value: "def"},
		{ID: "b"},
		{ID: "c", Label: "C", Value: "def"},
	}}

	got := Resolve(f, map[string]string{"c": " user ", "unknown": "x"})
	assert.Equal(t, []Resolved{
		{ID: "a", Label: "a", Value: "def", Source: SourceDefault},
		{ID: "b", Label: "b", Value: "", Source: SourceNone},
		{ID: "c", Label: "C", Value: "user", Source: SourceUser},
	}, got)
}

func TestTemplateRenderer(t *testing.T) {
	f := fiche.Fiche{Variables: []fiche.Variable{
		{ID: "ville", Value: "Lyon"},
		{ID: "date"},
	}}
	r := TemplateRenderer{Template: "Météo à {{ville}} le {{ date }} ({{inconnu}})"}

	got := CompileWith(r, f, map[string]string{"date": "lundi"}, "bref")
	assert.Equal(t, "Météo à Lyon le lundi ({{inconnu}})\n\nbref", got)

	got = CompileWith(r, f, nil, "")
	assert.Equal(t, "Météo à Lyon le  ({{inconnu}})", got)
}

func TestEnabledActions_LevelGating(t *testing.T) {
	f := fiche.Fiche{AI: fiche.Ratings{
		{Assistant: "chatgpt", Level: 1},
		{Assistant: "perplexity", Level: 3},
	}}

	got := EnabledActions(f)
	assert.Equal(t, []Action{
		{Name: "chatgpt", Level: 1, Enabled: false},
		{Name: "perplexity", Level: 3, Enabled: true},
		{Name: "mistral", Level: 3, Enabled: true},
	}, got)
	assert.Equal(t, got, EnabledActions(f))
}

func TestEnabledActions_UnratedDefaultsStayOffered(t *testing.T) {
	f := fiche.Fiche{AI: fiche.Ratings{
		{Assistant: "claude", Level: 2},
		{Assistant: "chatgpt", Level: 1},
	}}

	got := EnabledActions(f)
	assert.Equal(t, []Action{
		{Name: "claude", Level: 2, Enabled: true},
		{Name: "chatgpt", Level: 1, Enabled: false},
		{Name: "perplexity", Level: 3, Enabled: true},
		{Name: "mistral", Level: 3, Enabled: true},
	}, got)
	for _, a := range got {
		assert.Equal(t, LevelFor(f, a.Name), a.Level, a.Name)
	}
}

func TestEnabledActions_Defaults(t *testing.T) {
	got := EnabledActions(fiche.Fiche{})
	assert.Equal(t, []Action{
		{Name: "chatgpt", Level: 3, Enabled: true},
		{Name: "perplexity", Level: 3, Enabled: true},
		{Name: "mistral", Level: 3, Enabled: true},
	}, got)
}

func TestEnabledActions_CautionIsEnabled(t *testing.T) {
	got := EnabledActions(fiche.Fiche{AI: fiche.Ratings{{Assistant: "mistral", Level: 2}}})
	require.Len(t, got, 3)
	assert.Equal(t, Action{Name: "mistral", Level: 2, Enabled: true}, got[0])
}

func TestLevelFor(t *testing.T) {
	f := fiche.Fiche{AI: fiche.Ratings{{Assistant: "mistral", Level: 1}}}
	assert.Equal(t, fiche.LevelDisabled, LevelFor(f, "mistral"))
	assert.Equal(t, fiche.LevelRecommended, LevelFor(f, "chatgpt"))
}

func TestLinks(t *testing.T) {
	reg := assistant.NewRegistry()
	require.NoError(t, assistant.RegisterConfigured(config.DefaultAssistants(), reg))

	actions := []Action{
		{Name: "chatgpt", Level: 1, Enabled: false},
		{Name: "perplexity", Level: 2, Enabled: true},
		{Name: "claude", Level: 3, Enabled: true},
	}

	got := Links(actions, reg, "bonjour le monde")
	require.Len(t, got, 3)
	assert.Equal(t, "ChatGPT", got[0].Label)
	assert.Empty(t, got[0].URL)
	assert.Equal(t, "https://www.perplexity.ai/search?q=bonjour%20le%20monde", got[1].URL)
	assert.Equal(t, "claude", got[2].Label)
	assert.Empty(t, got[2].URL)

	for _, link := range Links(actions, reg, "  ") {
		assert.Empty(t, link.URL)
	}
}
