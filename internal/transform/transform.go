// Package transform reshapes raw association records from the register API
// into the JSON-LD document persisted by a harvest run.
package transform

import (
	_ "embed"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

//go:embed types.json
var typesJSON []byte

// associationType maps a verenigingstype code onto its concept URI.
type associationType struct {
	Code string `json:"code"`
	Naam string `json:"naam"`
	ID   string `json:"@id"`
}

// Location type names used by the primary-location fallback.
const (
	locationTypeRegisteredSeat = "Maatschappelijke zetel volgens KBO"
	locationTypeCorrespondence = "Correspondentie"
)

// Transformer reshapes association records.
type Transformer struct {
	typesByCode map[string]string
}

// New creates a Transformer with the embedded verenigingstype table.
func New() (*Transformer, error) {
	var types []associationType
	if err := json.Unmarshal(typesJSON, &types); err != nil {
		return nil, exception.New("transform", "failed to decode embedded verenigingstype table", err, exception.KindDataShape)
	}
	byCode := make(map[string]string, len(types))
	for _, t := range types {
		byCode[t.Code] = t.ID
	}
	return &Transformer{typesByCode: byCode}, nil
}

// Transform reshapes every record in place and returns the result slice:
// the verenigingstype gains its concept @id, the Vcode sleutel is renamed,
// one primary location is selected and the contact points are normalized.
func (t *Transformer) Transform(records []map[string]interface{}) []map[string]interface{} {
	transformed := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		t.transformOne(record)
		transformed = append(transformed, record)
	}
	return transformed
}

func (t *Transformer) transformOne(record map[string]interface{}) {
	if vt, ok := record["verenigingstype"].(map[string]interface{}); ok {
		if code, ok := vt["code"].(string); ok {
			if id, found := t.typesByCode[code]; found {
				vt["@id"] = id
			}
		}
	}

	for _, s := range asList(record["sleutels"]) {
		sleutel, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		if sleutel["codeerSysteem"] == "Vcode" {
			sleutel["codeerSysteem"] = "vCode"
		}
	}

	locations := asList(record["locaties"])
	primary, secondaries := selectPrimaryLocation(locations)
	if primary != nil {
		record["primaireLocatie"] = reshapeLocation(primary)
	} else {
		record["primaireLocatie"] = nil
	}
	reshaped := make([]interface{}, 0, len(secondaries))
	for _, loc := range secondaries {
		reshaped = append(reshaped, reshapeLocation(loc))
	}
	record["locaties"] = reshaped

	contacts := asList(record["contactgegevens"])
	reshapedContacts := make([]interface{}, 0, len(contacts))
	for _, c := range contacts {
		contact, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		reshapedContacts = append(reshapedContacts, reshapeContact(contact))
	}
	record["contactgegevens"] = reshapedContacts
}

// selectPrimaryLocation picks the primary location with an ordered fallback:
// the location flagged primary, else the registered seat per the company
// registry, else the correspondence address, else the first location, else
// none. The chosen location is excluded from the returned secondaries.
func selectPrimaryLocation(locations []interface{}) (map[string]interface{}, []map[string]interface{}) {
	typed := make([]map[string]interface{}, 0, len(locations))
	for _, l := range locations {
		if loc, ok := l.(map[string]interface{}); ok {
			typed = append(typed, loc)
		}
	}
	if len(typed) == 0 {
		return nil, nil
	}

	primaryIndex := -1
	for i, loc := range typed {
		if flag, ok := loc["isPrimair"].(bool); ok && flag {
			primaryIndex = i
			break
		}
	}
	if primaryIndex < 0 {
		primaryIndex = indexOfLocationType(typed, locationTypeRegisteredSeat)
	}
	if primaryIndex < 0 {
		primaryIndex = indexOfLocationType(typed, locationTypeCorrespondence)
	}
	if primaryIndex < 0 {
		primaryIndex = 0
	}

	secondaries := make([]map[string]interface{}, 0, len(typed)-1)
	for i, loc := range typed {
		if i != primaryIndex {
			secondaries = append(secondaries, loc)
		}
	}
	return typed[primaryIndex], secondaries
}

func indexOfLocationType(locations []map[string]interface{}, locationType string) int {
	for i, loc := range locations {
		if loc["locatietype"] == locationType {
			return i
		}
	}
	return -1
}

// reshapeLocation turns a raw location into its JSON-LD form. The location
// type becomes a TypeVestiging concept with a name-derived stable identifier.
func reshapeLocation(location map[string]interface{}) map[string]interface{} {
	locationType, _ := location["locatietype"].(string)
	return map[string]interface{}{
		"@id":         location["@id"],
		"@type":       location["@type"],
		"description": location["naam"],
		"locatieType": map[string]interface{}{
			"@id":   "con:" + conceptID(locationType),
			"@type": "concept:TypeVestiging",
			"naam":  locationType,
		},
		"bestaatUit": location["adres"],
	}
}

// conceptID derives a stable identifier from a concept name.
func conceptID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// reshapeContact turns a raw contact point into its JSON-LD form, splitting
// the waarde field into telefoon, email or website by contact type.
func reshapeContact(contact map[string]interface{}) map[string]interface{} {
	contactType, _ := contact["contactgegeventype"].(string)
	reshaped := map[string]interface{}{
		"@id":                contact["@id"],
		"@type":              contact["@type"],
		"contactgegeventype": contactType,
	}
	if flag, ok := contact["isPrimair"].(bool); ok && flag {
		reshaped["primairContact"] = "Primary"
	}
	switch contactType {
	case "Telefoon":
		reshaped["telefoon"] = contact["waarde"]
	case "E-mail":
		reshaped["email"] = contact["waarde"]
	case "Website", "SocialMedia":
		reshaped["website"] = contact["waarde"]
	}
	return reshaped
}

func asList(v interface{}) []interface{} {
	list, _ := v.([]interface{})
	return list
}
