package inheritance

import "strings"

// Node labels.
const (
	LabelPerson   = "Person"
	LabelProperty = "Property"
	LabelCountry  = "Country"
	LabelCity     = "City"
)

// Edge types.
const (
	EdgeParentOf    = "PARENT_OF"
	EdgeSpouseOf    = "SPOUSE_OF"
	EdgeResidentOf  = "RESIDENT_OF"
	EdgeBornIn      = "BORN_IN"
	EdgeDiedIn      = "DIED_IN"
	EdgeOwnedBy     = "OWNED_BY"
	EdgeOwns        = "OWNS"
	EdgeLocatedIn   = "LOCATED_IN"
	EdgeHasProperty = "HAS_PROPERTY"
	EdgeHasCity     = "HAS_CITY"
	EdgeHasCountry  = "HAS_COUNTRY"
)

const sentinel = "n/a"

// Value is an attribute value with explicit presence. Known is false when
// the source carried the "n/a" sentinel or an empty string. Raw keeps the
// source text untouched: node attributes store raw values even when they
// are sentinels, only derived nodes and edges require a known value.
type Value struct {
	Raw   string
	Known bool
}

func parseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, sentinel) {
		return Value{Raw: raw}
	}
	return Value{Raw: raw, Known: true}
}

// PersonRecord is one flat person entry from persons.json.
type PersonRecord struct {
	Name                   string   `json:"name"`
	ResidenceCountry       string   `json:"residence_country"`
	ResidenceCity          string   `json:"residence_city"`
	Profession             string   `json:"profession"`
	Gender                 string   `json:"gender"`
	Education              string   `json:"education"`
	BirthCity              string   `json:"birth_city"`
	BirthCountry           string   `json:"birth_country"`
	BirthDay               string   `json:"birth_day"`
	BirthMonth             string   `json:"birth_month"`
	BirthYear              string   `json:"birth_year"`
	DeathCity              string   `json:"death_city"`
	DeathCountry           string   `json:"death_country"`
	DeathDay               string   `json:"death_day"`
	DeathMonth             string   `json:"death_month"`
	DeathYear              string   `json:"death_year"`
	Photo                  string   `json:"photo"`
	BirthCertificate       string   `json:"birth_certificate"`
	DeathCertificate       string   `json:"death_certificate"`
	InheritanceConfinement string   `json:"inheritance_confinement"`
	Children               []string `json:"children"`
	Spouses                []string `json:"spouses"`
}

// PersonLocations is the record's place attributes with sentinel handling
// already resolved, so the pipeline never compares raw strings.
type PersonLocations struct {
	ResidenceCity    Value
	ResidenceCountry Value
	BirthCity        Value
	BirthCountry     Value
	DeathCity        Value
	DeathCountry     Value
}

// KnownName reports whether the record's natural key carries a value.
// Records without one never produce a node.
func (p PersonRecord) KnownName() bool {
	return parseValue(p.Name).Known
}

// Locations resolves the six place attributes of the record.
func (p PersonRecord) Locations() PersonLocations {
	return PersonLocations{
		ResidenceCity:    parseValue(p.ResidenceCity),
		ResidenceCountry: parseValue(p.ResidenceCountry),
		BirthCity:        parseValue(p.BirthCity),
		BirthCountry:     parseValue(p.BirthCountry),
		DeathCity:        parseValue(p.DeathCity),
		DeathCountry:     parseValue(p.DeathCountry),
	}
}

// KnownChildren returns the child names that carry values.
func (p PersonRecord) KnownChildren() []string {
	return knownNames(p.Children)
}

// KnownSpouses returns the spouse names that carry values.
func (p PersonRecord) KnownSpouses() []string {
	return knownNames(p.Spouses)
}

// Params returns the statement parameters for the person upsert. All
// scalar attributes are stored raw, sentinels included.
func (p PersonRecord) Params() map[string]interface{} {
	return map[string]interface{}{
		"name":                    p.Name,
		"residence_country":       p.ResidenceCountry,
		"residence_city":          p.ResidenceCity,
		"profession":              p.Profession,
		"gender":                  p.Gender,
		"education":               p.Education,
		"birth_city":              p.BirthCity,
		"birth_country":           p.BirthCountry,
		"birth_day":               p.BirthDay,
		"birth_month":             p.BirthMonth,
		"birth_year":              p.BirthYear,
		"death_city":              p.DeathCity,
		"death_country":           p.DeathCountry,
		"death_day":               p.DeathDay,
		"death_month":             p.DeathMonth,
		"death_year":              p.DeathYear,
		"photo":                   p.Photo,
		"birth_certificate":       p.BirthCertificate,
		"death_certificate":       p.DeathCertificate,
		"inheritance_confinement": p.InheritanceConfinement,
	}
}

// PropertyRecord is one flat property entry from properties.json.
type PropertyRecord struct {
	Name        string  `json:"name"`
	Lot         string  `json:"lot"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Area        float64 `json:"area"`
	AreaUnit    string  `json:"area_unit"`
	Shares      float64 `json:"shares"`
	Owner       string  `json:"owner"`
	Possessed   bool    `json:"possessed"`
	Unsold      bool    `json:"unsold"`
	Organized   bool    `json:"organized"`
	Effects     bool    `json:"effects"`
}

// KnownName reports whether the record's natural key carries a value.
func (p PropertyRecord) KnownName() bool {
	return parseValue(p.Name).Known
}

// KnownOwner returns the owner name if it carries a value.
func (p PropertyRecord) KnownOwner() (string, bool) {
	v := parseValue(p.Owner)
	return v.Raw, v.Known
}

// KnownCity returns the city name if it carries a value.
func (p PropertyRecord) KnownCity() (string, bool) {
	v := parseValue(p.City)
	return v.Raw, v.Known
}

// KnownCountry returns the country name if it carries a value.
func (p PropertyRecord) KnownCountry() (string, bool) {
	v := parseValue(p.Country)
	return v.Raw, v.Known
}

// Params returns the statement parameters for the property upsert.
func (p PropertyRecord) Params() map[string]interface{} {
	return map[string]interface{}{
		"name":        p.Name,
		"lot":         p.Lot,
		"description": p.Description,
		"location":    p.Location,
		"city":        p.City,
		"country":     p.Country,
		"area":        p.Area,
		"area_unit":   p.AreaUnit,
		"shares":      p.Shares,
		"owner":       p.Owner,
		"possessed":   p.Possessed,
		"unsold":      p.Unsold,
		"organized":   p.Organized,
		"effects":     p.Effects,
	}
}

func knownNames(raw []string) []string {
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		if v := parseValue(n); v.Known {
			names = append(names, v.Raw)
		}
	}
	return names
}
