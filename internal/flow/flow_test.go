package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fichecode/internal/assistant"
	"fichecode/internal/codec"
	"fichecode/internal/config"
	"fichecode/internal/fiche"
	"fichecode/internal/scan"
	"fichecode/internal/urlpack"
)

func newFlow(t *testing.T) *Flow {
	t.Helper()
	reg := assistant.NewRegistry()
	require.NoError(t, assistant.RegisterConfigured(config.DefaultAssistants(), reg))
	fl, err := New(reg, urlpack.New(urlpack.DefaultThreshold, nil))
	require.NoError(t, err)
	return fl
}

func testFiche() fiche.Fiche {
	return fiche.Fiche{
		Meta:      fiche.Meta{Titre: "Test"},
		Variables: []fiche.Variable{{ID: "x", Label: "X", Value: "42"}},
		AI:        fiche.Ratings{{Assistant: "chatgpt", Level: 3}, {Assistant: "mistral", Level: 1}},
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, urlpack.New(0, nil))
	assert.Error(t, err)
	_, err = New(assistant.NewRegistry(), nil)
	assert.Error(t, err)
}

func TestShareThenFromLink(t *testing.T) {
	fl := newFlow(t)

	shared, err := fl.Share(testFiche(), "https://fiches.example.org/app")
	require.NoError(t, err)
	assert.Contains(t, shared.Link.URL, "https://fiches.example.org/app/scan?fiche=")

	got, err := fl.FromLink(shared.Link.URL)
	require.NoError(t, err)
	assert.Equal(t, testFiche(), got)

	got, err = fl.FromText("  " + shared.Link.URL + "\n")
	require.NoError(t, err)
	assert.Equal(t, testFiche(), got)
}

func TestShare_RejectsInvalidFiche(t *testing.T) {
	fl := newFlow(t)
	_, err := fl.Share(fiche.Fiche{Variables: []fiche.Variable{{ID: "a"}, {ID: "a"}}}, "https://example.org")
	assert.True(t, codec.IsEncodingError(err))
}

func TestFromScan_Outcomes(t *testing.T) {
	fl := newFlow(t)
	payload, err := codec.Encode(testFiche())
	require.NoError(t, err)

	got, err := fl.FromScan(scan.DataText(payload))
	require.NoError(t, err)
	assert.Equal(t, "Test", got.Meta.Titre)

	_, err = fl.FromScan(scan.Text("   "))
	assert.ErrorIs(t, err, scan.ErrEmptyScanResult)
	assert.False(t, codec.IsDecodingError(err))

	raw, err := scan.ParseRaw(json.RawMessage(`{"data":{"meta":{"titre":"x"}}}`))
	require.NoError(t, err)
	_, err = fl.FromScan(raw)
	assert.True(t, codec.IsDecodingError(err))
	assert.NotErrorIs(t, err, scan.ErrEmptyScanResult)
}

func TestFromLink_NoPayload(t *testing.T) {
	fl := newFlow(t)
	_, err := fl.FromLink("https://example.org/scan")
	assert.ErrorIs(t, err, urlpack.ErrNoPayload)
}

func TestCompile(t *testing.T) {
	fl := newFlow(t)

	res := fl.Compile(testFiche(), map[string]string{"x": "7"}, "note")
	assert.Contains(t, res.Prompt, "7")
	assert.Contains(t, res.Prompt, "note")
	assert.NotContains(t, res.Prompt, "42")

	require.Len(t, res.Actions, 3)
	assert.Equal(t, "ChatGPT", res.Actions[0].Label)
	assert.NotEmpty(t, res.Actions[0].URL)
	assert.False(t, res.Actions[1].Enabled)
	assert.Empty(t, res.Actions[1].URL)
	assert.Equal(t, "perplexity", res.Actions[2].Name)
	assert.NotEmpty(t, res.Actions[2].URL)
}

func TestActions(t *testing.T) {
	fl := newFlow(t)
	actions := fl.Actions(fiche.Fiche{})
	require.Len(t, actions, 3)
	for _, a := range actions {
		assert.True(t, a.Enabled)
		assert.Empty(t, a.URL)
	}
}
