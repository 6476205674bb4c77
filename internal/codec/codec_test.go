package codec

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fichecode/internal/fiche"
)

func sampleFiche() fiche.Fiche {
	return fiche.Fiche{
		Meta: fiche.Meta{
			Categorie:  "Maintenance",
			Titre:      "Rapport d'intervention",
			Objectif:   "Rédiger un compte rendu <client>",
			Concepteur: "Atelier & Co",
			Version:    "3",
			DateMaj:    "2024-09-12",
		},
		Geoloc: &fiche.Geoloc{Latitude: "48.8566", Longitude: "2.3522"},
		Variables: []fiche.Variable{
			{ID: "client", Label: "Client", Help: "Nom du client"},
			{ID: "panne", Value: "fuite"},
			{ID: "duree", Label: "Durée", Value: "2h"},
			{ID: "notes", Help: "Observations libres"},
		},
		AI: fiche.Ratings{
			{Assistant: "mistral", Level: fiche.LevelCaution},
			{Assistant: "chatgpt", Level: fiche.LevelRecommended},
			{Assistant: "perplexity", Level: fiche.LevelDisabled},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := map[string]fiche.Fiche{
		"full":  sampleFiche(),
		"empty": {},
		"meta only": {
			Meta: fiche.Meta{Version: "1"},
		},
		"unicode": {
			Meta:      fiche.Meta{Titre: "Fiche 📍 été"},
			Variables: []fiche.Variable{{ID: "ville", Label: "Ville", Value: "Besançon"}},
		},
		"trailing empty fields": {
			Variables: []fiche.Variable{{ID: "a", Label: "", Help: "", Value: ""}, {ID: "b", Help: "h"}},
		},
	}

	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			payload, err := Encode(f)
			require.NoError(t, err)

			got, err := Decode(payload)
			require.NoError(t, err)

			if diff := cmp.Diff(f, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_ScenarioValue(t *testing.T) {
	f := fiche.Fiche{
		Meta:      fiche.Meta{Titre: "Test"},
		Variables: []fiche.Variable{{ID: "x", Label: "X", Value: "42"}},
		AI:        fiche.Ratings{{Assistant: "chatgpt", Level: 3}},
	}

	payload, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)

	v, ok := got.Variable("x")
	require.True(t, ok)
	assert.Equal(t, "42", v.Value)
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(sampleFiche())
	require.NoError(t, err)
	b, err := Encode(sampleFiche())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_UsesBase64Alphabet(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	_, err = base64.StdEncoding.DecodeString(payload)
	assert.NoError(t, err)
}

func TestEncode_DropsPartialGeoloc(t *testing.T) {
	f := fiche.Fiche{Geoloc: &fiche.Geoloc{Latitude: "45.0"}}

	payload, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	assert.Nil(t, got.Geoloc)
}

func TestEncode_RejectsInvariantViolations(t *testing.T) {
	tests := map[string]struct {
		fiche fiche.Fiche
		want  error
	}{
		"duplicate ids": {
			fiche: fiche.Fiche{Variables: []fiche.Variable{{ID: "x"}, {ID: "x"}}},
			want:  fiche.ErrDuplicateVariableID,
		},
		"bad level": {
			fiche: fiche.Fiche{AI: fiche.Ratings{{Assistant: "chatgpt", Level: 0}}},
			want:  fiche.ErrInvalidLevel,
		},
		"invalid utf-8 value": {
			fiche: fiche.Fiche{Variables: []fiche.Variable{{ID: "x", Value: "caf\xe9"}}},
			want:  fiche.ErrInvalidText,
		},
		"invalid utf-8 title": {
			fiche: fiche.Fiche{Meta: fiche.Meta{Titre: "\xff"}},
			want:  fiche.ErrInvalidText,
		},
		"invalid utf-8 assistant": {
			fiche: fiche.Fiche{AI: fiche.Ratings{{Assistant: "chat\xc3", Level: 3}}},
			want:  fiche.ErrInvalidText,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(tt.fiche)
			require.Error(t, err)
			assert.True(t, IsEncodingError(err))
			assert.ErrorIs(t, err, tt.want)

			var ee *EncodingError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.want.Error(), ee.Invariant)
		})
	}
}

func TestEncodedLen(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	n, err := EncodedLen(sampleFiche())
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	_, err = EncodedLen(fiche.Fiche{Variables: []fiche.Variable{{ID: ""}}})
	assert.True(t, IsEncodingError(err))
}

func TestDecode_ToleratesWhitespace(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	wrapped := "  \n" + payload[:10] + "\r\n" + payload[10:] + "\n\t"
	got, err := Decode(wrapped)
	require.NoError(t, err)
	assert.Equal(t, sampleFiche().Meta, got.Meta)
}

func TestDecode_AcceptsStrippedPadding(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	_, err = Decode(strings.TrimRight(payload, "="))
	assert.NoError(t, err)
}

func TestDecode_RejectsFlippedCharacters(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	body := strings.TrimRight(payload, "=")
	for i := 0; i < len(body); i++ {
		replacement := byte('A')
		if body[i] == 'A' {
			replacement = 'B'
		}
		corrupted := body[:i] + string(replacement) + body[i+1:]

		got, err := Decode(corrupted)
		require.Errorf(t, err, "flip at %d decoded to %+v", i, got)
		assert.Truef(t, IsDecodingError(err), "flip at %d: %v", i, err)
		assert.Equal(t, fiche.Fiche{}, got)
	}
}

func TestDecode_RejectsTruncation(t *testing.T) {
	payload, err := Encode(sampleFiche())
	require.NoError(t, err)

	body := strings.TrimRight(payload, "=")
	for _, cut := range []int{1, 2, 3, 4, 7, len(body) / 2, len(body) - 1} {
		got, err := Decode(body[:len(body)-cut])
		require.Errorf(t, err, "cut %d", cut)
		assert.True(t, IsDecodingError(err))
		assert.Equal(t, fiche.Fiche{}, got)
	}
}

func TestDecode_VersionMarker(t *testing.T) {
	valid, err := Encode(sampleFiche())
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(valid)
	require.NoError(t, err)

	future := append([]byte(nil), raw...)
	future[1] = Version + 1

	tests := map[string]struct {
		payload string
		want    error
	}{
		"empty":          {payload: "   ", want: ErrMissingVersion},
		"plain text":     {payload: base64.StdEncoding.EncodeToString([]byte("hello world")), want: ErrMissingVersion},
		"future version": {payload: base64.StdEncoding.EncodeToString(future), want: ErrUnsupportedVersion},
		"marker only":    {payload: base64.StdEncoding.EncodeToString([]byte{Magic}), want: ErrTruncated},
		"no body":        {payload: base64.StdEncoding.EncodeToString([]byte{Magic, Version, 0}), want: ErrTruncated},
		"not base64":     {payload: "{\"meta\":{}}", want: ErrCorrupted},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			require.Error(t, err)
			assert.True(t, IsDecodingError(err))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_RejectsInvalidFicheInsideValidEnvelope(t *testing.T) {
	payload := sealForTest(t, `{"v":[["x"],["x"]]}`)

	_, err := Decode(payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFiche)
	assert.ErrorIs(t, err, fiche.ErrDuplicateVariableID)
}

func TestDecode_RejectsUnknownBodyFields(t *testing.T) {
	for _, body := range []string{
		`{"z":1}`,
		`{"v":[[]]}`,
		`{"g":["1"]}`,
		`{"a":[["chatgpt"]]}`,
		`{"m":["1","2","3","4","5","6","7"]}`,
		`{} {}`,
	} {
		_, err := Decode(sealForTest(t, body))
		assert.ErrorIsf(t, err, ErrCorrupted, "body %s", body)
	}
}

func TestDecodeAll(t *testing.T) {
	good, err := Encode(sampleFiche())
	require.NoError(t, err)

	payloads := []string{good, "garbage", "", good}
	results, err := DecodeAll(context.Background(), payloads, 2)
	require.NoError(t, err)
	require.Len(t, results, len(payloads))

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Rapport d'intervention", results[0].Fiche.Meta.Titre)
	assert.True(t, IsDecodingError(results[1].Err))
	assert.ErrorIs(t, results[2].Err, ErrMissingVersion)
	assert.NoError(t, results[3].Err)
}

func TestDecodeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeAll(ctx, []string{"a", "b"}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func sealForTest(t *testing.T, body string) string {
	t.Helper()
	payload, err := seal([]byte(body))
	require.NoError(t, err)
	return payload
}
