package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/verenigingen-harvester/internal/transform"
)

func location(id, name, locType string, primary bool) map[string]interface{} {
	return map[string]interface{}{
		"@id":         id,
		"@type":       "Locatie",
		"naam":        name,
		"locatietype": locType,
		"isPrimair":   primary,
		"adres":       map[string]interface{}{"straatnaam": "Kerkstraat"},
	}
}

func record(locations ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"vCode": "V0001",
		"verenigingstype": map[string]interface{}{
			"code": "FV",
			"naam": "Feitelijke vereniging",
		},
		"sleutels": []interface{}{
			map[string]interface{}{"codeerSysteem": "Vcode", "waarde": "V0001"},
			map[string]interface{}{"codeerSysteem": "KBO", "waarde": "0123456789"},
		},
		"locaties":        locations,
		"contactgegevens": []interface{}{},
	}
}

func newTransformer(t *testing.T) *transform.Transformer {
	t.Helper()
	tr, err := transform.New()
	require.NoError(t, err)
	return tr
}

func TestTransform_MapsAssociationTypeAndSleutels(t *testing.T) {
	tr := newTransformer(t)

	out := tr.Transform([]map[string]interface{}{record()})

	require.Len(t, out, 1)
	vt := out[0]["verenigingstype"].(map[string]interface{})
	assert.Equal(t, "https://data.vlaanderen.be/id/concept/TypeVereniging/fv", vt["@id"])

	sleutels := out[0]["sleutels"].([]interface{})
	assert.Equal(t, "vCode", sleutels[0].(map[string]interface{})["codeerSysteem"])
	assert.Equal(t, "KBO", sleutels[1].(map[string]interface{})["codeerSysteem"])
}

func TestTransform_PrimaryLocationFlagged(t *testing.T) {
	tr := newTransformer(t)

	out := tr.Transform([]map[string]interface{}{record(
		location("loc:1", "Zetel", "Maatschappelijke zetel volgens KBO", false),
		location("loc:2", "Clubhuis", "Activiteiten", true),
	)})

	primary := out[0]["primaireLocatie"].(map[string]interface{})
	assert.Equal(t, "loc:2", primary["@id"])

	secondaries := out[0]["locaties"].([]interface{})
	require.Len(t, secondaries, 1)
	assert.Equal(t, "loc:1", secondaries[0].(map[string]interface{})["@id"])
}

func TestTransform_PrimaryLocationFallbackOrder(t *testing.T) {
	tr := newTransformer(t)

	tests := []struct {
		name      string
		locations []interface{}
		wantID    string
	}{
		{
			name: "registered seat beats correspondence",
			locations: []interface{}{
				location("loc:1", "Post", "Correspondentie", false),
				location("loc:2", "Zetel", "Maatschappelijke zetel volgens KBO", false),
			},
			wantID: "loc:2",
		},
		{
			name: "correspondence beats first in input order",
			locations: []interface{}{
				location("loc:1", "Clubhuis", "Activiteiten", false),
				location("loc:2", "Post", "Correspondentie", false),
			},
			wantID: "loc:2",
		},
		{
			name: "first location as last resort",
			locations: []interface{}{
				location("loc:1", "Clubhuis", "Activiteiten", false),
				location("loc:2", "Veld", "Activiteiten", false),
			},
			wantID: "loc:1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tr.Transform([]map[string]interface{}{record(tt.locations...)})

			primary := out[0]["primaireLocatie"].(map[string]interface{})
			assert.Equal(t, tt.wantID, primary["@id"])

			// The primary never shows up again among the secondaries.
			for _, s := range out[0]["locaties"].([]interface{}) {
				assert.NotEqual(t, tt.wantID, s.(map[string]interface{})["@id"])
			}
		})
	}
}

func TestTransform_NoLocations(t *testing.T) {
	tr := newTransformer(t)

	out := tr.Transform([]map[string]interface{}{record()})

	assert.Nil(t, out[0]["primaireLocatie"])
	assert.Empty(t, out[0]["locaties"])
}

func TestTransform_LocationTypeConceptIsStable(t *testing.T) {
	tr := newTransformer(t)

	first := tr.Transform([]map[string]interface{}{record(
		location("loc:1", "Zetel", "Maatschappelijke zetel volgens KBO", true),
	)})
	second := tr.Transform([]map[string]interface{}{record(
		location("loc:9", "Andere zetel", "Maatschappelijke zetel volgens KBO", true),
	)})

	firstType := first[0]["primaireLocatie"].(map[string]interface{})["locatieType"].(map[string]interface{})
	secondType := second[0]["primaireLocatie"].(map[string]interface{})["locatieType"].(map[string]interface{})

	// Same concept name, same derived identifier.
	assert.Equal(t, firstType["@id"], secondType["@id"])
	assert.Contains(t, firstType["@id"], "con:")
	assert.Equal(t, "concept:TypeVestiging", firstType["@type"])
}

func TestTransform_ContactPoints(t *testing.T) {
	tr := newTransformer(t)

	rec := record()
	rec["contactgegevens"] = []interface{}{
		map[string]interface{}{
			"@id": "c:1", "@type": "Contactgegeven",
			"contactgegeventype": "Telefoon", "waarde": "+32 9 123 45 67", "isPrimair": true,
		},
		map[string]interface{}{
			"@id": "c:2", "@type": "Contactgegeven",
			"contactgegeventype": "E-mail", "waarde": "info@example.org", "isPrimair": false,
		},
		map[string]interface{}{
			"@id": "c:3", "@type": "Contactgegeven",
			"contactgegeventype": "SocialMedia", "waarde": "https://example.org/fb", "isPrimair": false,
		},
	}

	out := tr.Transform([]map[string]interface{}{rec})
	contacts := out[0]["contactgegevens"].([]interface{})
	require.Len(t, contacts, 3)

	phone := contacts[0].(map[string]interface{})
	assert.Equal(t, "+32 9 123 45 67", phone["telefoon"])
	assert.Equal(t, "Primary", phone["primairContact"])

	email := contacts[1].(map[string]interface{})
	assert.Equal(t, "info@example.org", email["email"])
	assert.NotContains(t, email, "primairContact")

	social := contacts[2].(map[string]interface{})
	assert.Equal(t, "https://example.org/fb", social["website"])
}
