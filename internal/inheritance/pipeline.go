package inheritance

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/graph"
	"github.com/khaledhikmat/ai-agents/internal/metrics"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

// Phase names for logs and failure metrics.
const (
	phasePersons       = "person-upsert"
	phaseCountries     = "country-upsert"
	phaseCities        = "city-upsert"
	phaseCountryCities = "country-city"
	phaseParents       = "parent-of"
	phaseSpouses       = "spouse-of"
	phaseResidences    = "resident-of"
	phaseBirths        = "born-in"
	phaseDeaths        = "died-in"
	phaseProperties    = "property-upsert"
	phaseOwners        = "owned-by"
	phaseLocations     = "located-in"
)

const stmtUpsertPerson = `
	MERGE (p:Person {name: $name})
		ON CREATE SET
			p.residence_country = $residence_country,
			p.residence_city = $residence_city,
			p.profession = $profession,
			p.gender = $gender,
			p.education = $education,
			p.birth_city = $birth_city,
			p.birth_country = $birth_country,
			p.birth_day = $birth_day,
			p.birth_month = $birth_month,
			p.birth_year = $birth_year,
			p.death_city = $death_city,
			p.death_country = $death_country,
			p.death_day = $death_day,
			p.death_month = $death_month,
			p.death_year = $death_year,
			p.photo = $photo,
			p.birth_certificate = $birth_certificate,
			p.death_certificate = $death_certificate,
			p.inheritance_confinement = $inheritance_confinement
		ON MATCH SET
			p.residence_country = $residence_country,
			p.residence_city = $residence_city,
			p.profession = $profession,
			p.gender = $gender,
			p.education = $education,
			p.birth_city = $birth_city,
			p.birth_country = $birth_country,
			p.birth_day = $birth_day,
			p.birth_month = $birth_month,
			p.birth_year = $birth_year,
			p.death_city = $death_city,
			p.death_country = $death_country,
			p.death_day = $death_day,
			p.death_month = $death_month,
			p.death_year = $death_year,
			p.photo = $photo,
			p.birth_certificate = $birth_certificate,
			p.death_certificate = $death_certificate,
			p.inheritance_confinement = $inheritance_confinement
	RETURN p.name AS name
`

const stmtUpsertCountry = `
	MERGE (c:Country {name: $name})
	RETURN c.name AS name
`

const stmtUpsertCity = `
	MERGE (c:City {name: $name})
	RETURN c.name AS name
`

const stmtCountryCity = `
	MATCH (c:Country {name: $country}), (ci:City {name: $city})
	MERGE (c)-[:HAS_CITY]->(ci)
	MERGE (ci)-[:HAS_COUNTRY]->(c)
`

const stmtParentOf = `
	MATCH (p:Person {name: $parent}), (c:Person {name: $child})
	MERGE (p)-[:PARENT_OF]->(c)
`

const stmtSpouseOf = `
	MATCH (p:Person {name: $person}), (s:Person {name: $spouse})
	MERGE (p)-[:SPOUSE_OF]->(s)
`

// stmtPersonPlace relates a person to a City or Country node. The edge
// type and node label are validated against allowlists before formatting;
// the names themselves always travel as parameters.
const stmtPersonPlace = `
	MATCH (p:Person {name: $person}), (t:%s {name: $place})
	MERGE (p)-[:%s]->(t)
`

const stmtUpsertProperty = `
	MERGE (p:Property {name: $name})
		ON CREATE SET
			p.lot = $lot,
			p.description = $description,
			p.location = $location,
			p.city = $city,
			p.country = $country,
			p.area = $area,
			p.area_unit = $area_unit,
			p.shares = $shares,
			p.owner = $owner,
			p.possessed = $possessed,
			p.unsold = $unsold,
			p.organized = $organized,
			p.effects = $effects
		ON MATCH SET
			p.lot = $lot,
			p.description = $description,
			p.location = $location,
			p.city = $city,
			p.country = $country,
			p.area = $area,
			p.area_unit = $area_unit,
			p.shares = $shares,
			p.owner = $owner,
			p.possessed = $possessed,
			p.unsold = $unsold,
			p.organized = $organized,
			p.effects = $effects
	RETURN p.name AS name
`

const stmtOwnedBy = `
	MATCH (p:Property {name: $property}), (o:Person {name: $owner})
	MERGE (p)-[:OWNED_BY]->(o)
	MERGE (o)-[:OWNS]->(p)
`

const stmtPropertyPlace = `
	MATCH (p:Property {name: $property}), (t:%s {name: $place})
	MERGE (p)-[:LOCATED_IN]->(t)
	MERGE (t)-[:HAS_PROPERTY]->(p)
`

const stmtVerifyPersons = `
	MATCH (p:Person)
	RETURN p.name AS name, p.residence_city AS residence_city, p.residence_country AS residence_country
	ORDER BY p.name DESC
`

const stmtVerifyProperties = `
	MATCH (p:Property)
	RETURN p.name AS name, p.location AS location, p.city AS city, p.country AS country
	ORDER BY p.name DESC
`

var personPlaceEdges = map[string]bool{
	EdgeResidentOf: true,
	EdgeBornIn:     true,
	EdgeDiedIn:     true,
}

var placeLabels = map[string]bool{
	LabelCity:    true,
	LabelCountry: true,
}

// Report summarizes one ingestion run for the operator. The counters are
// per statement, so a record whose upsert failed is not counted even
// though later phases may still reference it.
type Report struct {
	Persons    int // person upserts issued successfully
	Countries  int
	Cities     int
	Properties int
	Skipped    int // records dropped for a sentinel natural key
	Statements int
	Failures   int

	// Verification reads, diagnostic only.
	PersonRows   []graph.Row
	PropertyRows []graph.Row
}

// Pipeline converts flat entity records into nodes and typed edges in a
// fixed phase order: persons, then synthesized locations, then family and
// place edges, then properties and their edges. Every write is an upsert
// or merge, so re-running the pipeline against the same records produces
// the same graph. One run is single-threaded; statements are issued and
// awaited in order, which is what makes create-before-relate safe.
type Pipeline struct {
	svc    graph.Service
	logger *zap.Logger
}

// NewPipeline builds a pipeline over the deterministic service variant.
func NewPipeline(svc graph.Service) *Pipeline {
	return &Pipeline{
		svc:    svc,
		logger: logger.Get(),
	}
}

// Run clears the graph and executes the full pipeline. A store failure on
// the clear aborts the run; per-statement failures afterwards are logged,
// counted, and skipped.
func (p *Pipeline) Run(ctx context.Context, persons []PersonRecord, properties []PropertyRecord) (*Report, error) {
	if err := p.svc.ClearGraph(ctx); err != nil {
		return nil, err
	}

	rep := &Report{}
	acc := newAccumulator()

	p.upsertPersons(ctx, rep, acc, persons)
	p.upsertCountries(ctx, rep, acc)
	p.upsertCities(ctx, rep, acc)
	p.relateCountryCities(ctx, rep, acc)
	p.relateParents(ctx, rep, acc)
	p.relateSpouses(ctx, rep, acc)
	p.relatePersonPlaces(ctx, rep, acc)
	p.upsertProperties(ctx, rep, acc, properties)
	p.relateOwners(ctx, rep, acc)
	p.relatePropertyPlaces(ctx, rep, acc)
	p.verify(ctx, rep)

	metrics.IngestedNodes.WithLabelValues(LabelPerson).Set(float64(rep.Persons))
	metrics.IngestedNodes.WithLabelValues(LabelProperty).Set(float64(rep.Properties))
	metrics.IngestedNodes.WithLabelValues(LabelCountry).Set(float64(rep.Countries))
	metrics.IngestedNodes.WithLabelValues(LabelCity).Set(float64(rep.Cities))

	p.logger.Info("Ingestion finished",
		zap.Int("persons", rep.Persons),
		zap.Int("properties", rep.Properties),
		zap.Int("countries", rep.Countries),
		zap.Int("cities", rep.Cities),
		zap.Int("statements", rep.Statements),
		zap.Int("failures", rep.Failures),
		zap.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

// accumulator collects the derived sets and adjacency of phase 1 and 6.
// The per-person and per-property maps are last-win: a duplicate record
// overwrites what an earlier record contributed, matching upsert
// semantics on the node itself.
type accumulator struct {
	children map[string][]string
	spouses  map[string][]string

	countries map[string]struct{}
	cities    map[string]struct{}

	residenceCities    map[string]string
	residenceCountries map[string]string
	birthCities        map[string]string
	birthCountries     map[string]string
	deathCities        map[string]string
	deathCountries     map[string]string

	countryCities map[string]map[string]struct{}

	owners        map[string]string
	propCountries map[string]string
	propCities    map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{
		children:           map[string][]string{},
		spouses:            map[string][]string{},
		countries:          map[string]struct{}{},
		cities:             map[string]struct{}{},
		residenceCities:    map[string]string{},
		residenceCountries: map[string]string{},
		birthCities:        map[string]string{},
		birthCountries:     map[string]string{},
		deathCities:        map[string]string{},
		deathCountries:     map[string]string{},
		countryCities:      map[string]map[string]struct{}{},
		owners:             map[string]string{},
		propCountries:      map[string]string{},
		propCities:         map[string]string{},
	}
}

func (a *accumulator) addPair(country, city string) {
	if a.countryCities[country] == nil {
		a.countryCities[country] = map[string]struct{}{}
	}
	a.countryCities[country][city] = struct{}{}
}

// Phase 1: upsert person nodes and accumulate adjacency and location sets.
func (p *Pipeline) upsertPersons(ctx context.Context, rep *Report, acc *accumulator, persons []PersonRecord) {
	for _, rec := range persons {
		if !rec.KnownName() {
			rep.Skipped++
			p.logger.Warn("Person record skipped, natural key is absent")
			continue
		}

		acc.children[rec.Name] = rec.KnownChildren()
		acc.spouses[rec.Name] = rec.KnownSpouses()

		loc := rec.Locations()
		if loc.ResidenceCountry.Known {
			acc.countries[loc.ResidenceCountry.Raw] = struct{}{}
			acc.residenceCountries[rec.Name] = loc.ResidenceCountry.Raw
		}
		if loc.BirthCountry.Known {
			acc.countries[loc.BirthCountry.Raw] = struct{}{}
			acc.birthCountries[rec.Name] = loc.BirthCountry.Raw
		}
		if loc.DeathCountry.Known {
			acc.countries[loc.DeathCountry.Raw] = struct{}{}
			acc.deathCountries[rec.Name] = loc.DeathCountry.Raw
		}
		if loc.ResidenceCity.Known {
			acc.cities[loc.ResidenceCity.Raw] = struct{}{}
			acc.residenceCities[rec.Name] = loc.ResidenceCity.Raw
			if loc.ResidenceCountry.Known {
				acc.addPair(loc.ResidenceCountry.Raw, loc.ResidenceCity.Raw)
			}
		}
		if loc.BirthCity.Known {
			acc.cities[loc.BirthCity.Raw] = struct{}{}
			acc.birthCities[rec.Name] = loc.BirthCity.Raw
			if loc.BirthCountry.Known {
				acc.addPair(loc.BirthCountry.Raw, loc.BirthCity.Raw)
			}
		}
		if loc.DeathCity.Known {
			acc.cities[loc.DeathCity.Raw] = struct{}{}
			acc.deathCities[rec.Name] = loc.DeathCity.Raw
			if loc.DeathCountry.Known {
				acc.addPair(loc.DeathCountry.Raw, loc.DeathCity.Raw)
			}
		}

		if p.exec(ctx, rep, phasePersons, rec.Name, stmtUpsertPerson, rec.Params()) {
			rep.Persons++
		}
	}
}

// Phase 2: upsert one Country node per distinct observed country and one
// City node per distinct observed city.
func (p *Pipeline) upsertCountries(ctx context.Context, rep *Report, acc *accumulator) {
	for _, country := range sortedKeys(acc.countries) {
		if p.exec(ctx, rep, phaseCountries, country, stmtUpsertCountry, map[string]interface{}{"name": country}) {
			rep.Countries++
		}
	}
}

func (p *Pipeline) upsertCities(ctx context.Context, rep *Report, acc *accumulator) {
	for _, city := range sortedKeys(acc.cities) {
		if p.exec(ctx, rep, phaseCities, city, stmtUpsertCity, map[string]interface{}{"name": city}) {
			rep.Cities++
		}
	}
}

// Phase 3: bidirectional HAS_CITY/HAS_COUNTRY pairs for every observed
// (country, city) co-occurrence.
func (p *Pipeline) relateCountryCities(ctx context.Context, rep *Report, acc *accumulator) {
	for _, country := range sortedKeys(acc.countryCities) {
		for _, city := range sortedKeys(acc.countryCities[country]) {
			p.exec(ctx, rep, phaseCountryCities, country+"/"+city, stmtCountryCity, map[string]interface{}{
				"country": country,
				"city":    city,
			})
		}
	}
}

// Phase 4: family edges from the accumulated adjacency. A listed name
// with no matching Person node matches zero rows and produces no edge.
func (p *Pipeline) relateParents(ctx context.Context, rep *Report, acc *accumulator) {
	for _, parent := range sortedKeys(acc.children) {
		for _, child := range acc.children[parent] {
			p.exec(ctx, rep, phaseParents, parent+"/"+child, stmtParentOf, map[string]interface{}{
				"parent": parent,
				"child":  child,
			})
		}
	}
}

func (p *Pipeline) relateSpouses(ctx context.Context, rep *Report, acc *accumulator) {
	for _, person := range sortedKeys(acc.spouses) {
		for _, spouse := range acc.spouses[person] {
			p.exec(ctx, rep, phaseSpouses, person+"/"+spouse, stmtSpouseOf, map[string]interface{}{
				"person": person,
				"spouse": spouse,
			})
		}
	}
}

// Phase 5: RESIDENT_OF, BORN_IN and DIED_IN edges, city level then
// country level per kind.
func (p *Pipeline) relatePersonPlaces(ctx context.Context, rep *Report, acc *accumulator) {
	p.relatePlaceMap(ctx, rep, phaseResidences, acc.residenceCities, EdgeResidentOf, LabelCity)
	p.relatePlaceMap(ctx, rep, phaseResidences, acc.residenceCountries, EdgeResidentOf, LabelCountry)
	p.relatePlaceMap(ctx, rep, phaseBirths, acc.birthCities, EdgeBornIn, LabelCity)
	p.relatePlaceMap(ctx, rep, phaseBirths, acc.birthCountries, EdgeBornIn, LabelCountry)
	p.relatePlaceMap(ctx, rep, phaseDeaths, acc.deathCities, EdgeDiedIn, LabelCity)
	p.relatePlaceMap(ctx, rep, phaseDeaths, acc.deathCountries, EdgeDiedIn, LabelCountry)
}

func (p *Pipeline) relatePlaceMap(ctx context.Context, rep *Report, phase string, m map[string]string, edge, label string) {
	stmt, err := personPlaceStatement(edge, label)
	if err != nil {
		p.logger.Error("Place statement rejected", zap.Error(err))
		return
	}
	for _, person := range sortedKeys(m) {
		p.exec(ctx, rep, phase, person, stmt, map[string]interface{}{
			"person": person,
			"place":  m[person],
		})
	}
}

// Phase 6: upsert property nodes and accumulate owner and location maps.
func (p *Pipeline) upsertProperties(ctx context.Context, rep *Report, acc *accumulator, properties []PropertyRecord) {
	for _, rec := range properties {
		if !rec.KnownName() {
			rep.Skipped++
			p.logger.Warn("Property record skipped, natural key is absent")
			continue
		}

		if owner, ok := rec.KnownOwner(); ok {
			acc.owners[rec.Name] = owner
		}
		if country, ok := rec.KnownCountry(); ok {
			acc.propCountries[rec.Name] = country
		}
		if city, ok := rec.KnownCity(); ok {
			acc.propCities[rec.Name] = city
		}

		if p.exec(ctx, rep, phaseProperties, rec.Name, stmtUpsertProperty, rec.Params()) {
			rep.Properties++
		}
	}
}

// Phase 7: ownership and location edge pairs. Location edges only land
// when a person phase already synthesized the Country or City node.
func (p *Pipeline) relateOwners(ctx context.Context, rep *Report, acc *accumulator) {
	for _, property := range sortedKeys(acc.owners) {
		p.exec(ctx, rep, phaseOwners, property, stmtOwnedBy, map[string]interface{}{
			"property": property,
			"owner":    acc.owners[property],
		})
	}
}

func (p *Pipeline) relatePropertyPlaces(ctx context.Context, rep *Report, acc *accumulator) {
	p.relatePropertyPlaceMap(ctx, rep, acc.propCountries, LabelCountry)
	p.relatePropertyPlaceMap(ctx, rep, acc.propCities, LabelCity)
}

func (p *Pipeline) relatePropertyPlaceMap(ctx context.Context, rep *Report, m map[string]string, label string) {
	stmt, err := propertyPlaceStatement(label)
	if err != nil {
		p.logger.Error("Place statement rejected", zap.Error(err))
		return
	}
	for _, property := range sortedKeys(m) {
		p.exec(ctx, rep, phaseLocations, property, stmt, map[string]interface{}{
			"property": property,
			"place":    m[property],
		})
	}
}

// Phase 8: verification reads for the operator summary.
func (p *Pipeline) verify(ctx context.Context, rep *Report) {
	if rows, err := p.svc.Query(ctx, stmtVerifyPersons, nil); err == nil {
		rep.PersonRows = rows
	}
	if rows, err := p.svc.Query(ctx, stmtVerifyProperties, nil); err == nil {
		rep.PropertyRows = rows
	}
}

// exec issues one statement and isolates its failure: log, count, move on.
func (p *Pipeline) exec(ctx context.Context, rep *Report, phase, key, statement string, params map[string]interface{}) bool {
	rep.Statements++
	if _, err := p.svc.Query(ctx, statement, params); err != nil {
		rep.Failures++
		metrics.IngestFailures.WithLabelValues(phase).Inc()
		p.logger.Warn("Statement skipped",
			zap.String("phase", phase),
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	return true
}

func personPlaceStatement(edge, label string) (string, error) {
	if !personPlaceEdges[edge] {
		return "", apperrors.NewValidationBadRelationship(edge)
	}
	if !placeLabels[label] {
		return "", apperrors.NewValidationBadLabel(label)
	}
	return fmt.Sprintf(stmtPersonPlace, label, edge), nil
}

func propertyPlaceStatement(label string) (string, error) {
	if !placeLabels[label] {
		return "", apperrors.NewValidationBadLabel(label)
	}
	return fmt.Sprintf(stmtPropertyPlace, label), nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
