package inheritance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/khaledhikmat/ai-agents/internal/graph"
)

// Statement variants that the production code builds with Sprintf.
var (
	mockResidentCity, _    = personPlaceStatement(EdgeResidentOf, LabelCity)
	mockResidentCountry, _ = personPlaceStatement(EdgeResidentOf, LabelCountry)
	mockBornCity, _        = personPlaceStatement(EdgeBornIn, LabelCity)
	mockBornCountry, _     = personPlaceStatement(EdgeBornIn, LabelCountry)
	mockDiedCity, _        = personPlaceStatement(EdgeDiedIn, LabelCity)
	mockDiedCountry, _     = personPlaceStatement(EdgeDiedIn, LabelCountry)

	mockPropPlaceCity, _    = propertyPlaceStatement(LabelCity)
	mockPropPlaceCountry, _ = propertyPlaceStatement(LabelCountry)

	mockRelsPerson   = fmt.Sprintf(stmtNodeRelationships, LabelPerson)
	mockRelsProperty = fmt.Sprintf(stmtNodeRelationships, LabelProperty)
	mockRelsCountry  = fmt.Sprintf(stmtNodeRelationships, LabelCountry)
	mockRelsCity     = fmt.Sprintf(stmtNodeRelationships, LabelCity)

	mockPersonsByGender = fmt.Sprintf(stmtPersonsByAttribute, "gender")
)

var personListKeys = []string{"name", "gender", "profession", "residence_city", "residence_country"}
var propertyListKeys = []string{"name", "city", "country", "area", "area_unit", "shares", "owner"}

type nodeKey struct {
	label string
	name  string
}

type edgeKey struct {
	fromLabel string
	fromName  string
	typ       string
	toLabel   string
	toName    string
}

// mockService applies merge semantics to plain maps for the statements the
// pipeline and the traversal set issue. Enough fidelity to assert
// idempotence, uniqueness and edge shape without a live store.
type mockService struct {
	nodes map[nodeKey]map[string]interface{}
	edges map[edgeKey]struct{}

	episodes []graph.Episode
	cleared  int
	clearErr error
	failOn   map[string]error
}

func newMockService() *mockService {
	return &mockService{
		nodes:  make(map[nodeKey]map[string]interface{}),
		edges:  make(map[edgeKey]struct{}),
		failOn: make(map[string]error),
	}
}

func (m *mockService) Query(ctx context.Context, stmt string, params map[string]interface{}) ([]graph.Row, error) {
	if err := m.failOn[stmt]; err != nil {
		return nil, err
	}
	str := func(key string) string {
		v, _ := params[key].(string)
		return v
	}
	switch stmt {
	case stmtUpsertPerson:
		m.upsertNode(LabelPerson, params)
		return nameRows(str("name")), nil
	case stmtUpsertCountry:
		m.upsertNode(LabelCountry, params)
		return nameRows(str("name")), nil
	case stmtUpsertCity:
		m.upsertNode(LabelCity, params)
		return nameRows(str("name")), nil
	case stmtUpsertProperty:
		m.upsertNode(LabelProperty, params)
		return nameRows(str("name")), nil
	case stmtCountryCity:
		if m.has(LabelCountry, str("country")) && m.has(LabelCity, str("city")) {
			m.addEdge(LabelCountry, str("country"), EdgeHasCity, LabelCity, str("city"))
			m.addEdge(LabelCity, str("city"), EdgeHasCountry, LabelCountry, str("country"))
		}
		return nil, nil
	case stmtParentOf:
		if m.has(LabelPerson, str("parent")) && m.has(LabelPerson, str("child")) {
			m.addEdge(LabelPerson, str("parent"), EdgeParentOf, LabelPerson, str("child"))
		}
		return nil, nil
	case stmtSpouseOf:
		if m.has(LabelPerson, str("person")) && m.has(LabelPerson, str("spouse")) {
			m.addEdge(LabelPerson, str("person"), EdgeSpouseOf, LabelPerson, str("spouse"))
		}
		return nil, nil
	case mockResidentCity:
		m.personPlace(str("person"), EdgeResidentOf, LabelCity, str("place"))
		return nil, nil
	case mockResidentCountry:
		m.personPlace(str("person"), EdgeResidentOf, LabelCountry, str("place"))
		return nil, nil
	case mockBornCity:
		m.personPlace(str("person"), EdgeBornIn, LabelCity, str("place"))
		return nil, nil
	case mockBornCountry:
		m.personPlace(str("person"), EdgeBornIn, LabelCountry, str("place"))
		return nil, nil
	case mockDiedCity:
		m.personPlace(str("person"), EdgeDiedIn, LabelCity, str("place"))
		return nil, nil
	case mockDiedCountry:
		m.personPlace(str("person"), EdgeDiedIn, LabelCountry, str("place"))
		return nil, nil
	case stmtOwnedBy:
		if m.has(LabelProperty, str("property")) && m.has(LabelPerson, str("owner")) {
			m.addEdge(LabelProperty, str("property"), EdgeOwnedBy, LabelPerson, str("owner"))
			m.addEdge(LabelPerson, str("owner"), EdgeOwns, LabelProperty, str("property"))
		}
		return nil, nil
	case mockPropPlaceCity:
		m.propertyPlace(str("property"), LabelCity, str("place"))
		return nil, nil
	case mockPropPlaceCountry:
		m.propertyPlace(str("property"), LabelCountry, str("place"))
		return nil, nil
	case stmtVerifyPersons:
		return m.listNodes(LabelPerson, []string{"name", "residence_city", "residence_country"}, true), nil
	case stmtVerifyProperties:
		return m.listNodes(LabelProperty, []string{"name", "location", "city", "country"}, true), nil
	case stmtPersons:
		return m.listNodes(LabelPerson, personListKeys, false), nil
	case mockPersonsByGender:
		var out []graph.Row
		for _, row := range m.listNodes(LabelPerson, personListKeys, false) {
			if row.Values["gender"] == params["value"] {
				out = append(out, row)
			}
		}
		return out, nil
	case stmtProperties:
		return m.listNodes(LabelProperty, propertyListKeys, false), nil
	case stmtCountries:
		return m.listNodes(LabelCountry, []string{"name"}, false), nil
	case stmtCities:
		return m.listNodes(LabelCity, []string{"name"}, false), nil
	case stmtPersonDetails:
		return m.details(LabelPerson, str("name")), nil
	case stmtPropertyDetails:
		return m.details(LabelProperty, str("name")), nil
	case stmtPersonChildren:
		return nameListRows(m.childrenOf(str("name"))), nil
	case stmtPersonGrandChildren:
		return nameListRows(m.grandChildrenOf(str("name"))), nil
	case stmtPersonSpouses:
		return nameListRows(m.spousesOf(str("name"))), nil
	case stmtPersonInheritors:
		return nameListRows(m.descendantsOf(str("name"))), nil
	case stmtPropertiesInCountry:
		return m.propertiesIn(LabelCountry, str("country")), nil
	case stmtPropertiesInCity:
		return m.propertiesIn(LabelCity, str("city")), nil
	case mockRelsPerson:
		return m.relRows(LabelPerson, str("name")), nil
	case mockRelsProperty:
		return m.relRows(LabelProperty, str("name")), nil
	case mockRelsCountry:
		return m.relRows(LabelCountry, str("name")), nil
	case mockRelsCity:
		return m.relRows(LabelCity, str("name")), nil
	case stmtCountPersons:
		return countRows(m.countLabel(LabelPerson)), nil
	case stmtCountProperties:
		return countRows(m.countLabel(LabelProperty)), nil
	case stmtCountCountries:
		return countRows(m.countLabel(LabelCountry)), nil
	case stmtCountCities:
		return countRows(m.countLabel(LabelCity)), nil
	case stmtCountEdges:
		return countRows(len(m.edges)), nil
	}
	return nil, fmt.Errorf("mock: unrecognized statement: %s", stmt)
}

func (m *mockService) AddEpisode(ctx context.Context, ep graph.Episode) error {
	m.episodes = append(m.episodes, ep)
	return nil
}

func (m *mockService) AddEpisodeAux(ctx context.Context, ep graph.Episode, schema *graph.EpisodeSchema) error {
	m.episodes = append(m.episodes, ep)
	return nil
}

func (m *mockService) Search(ctx context.Context, query string, limit int) ([]graph.Fact, error) {
	return nil, nil
}

func (m *mockService) SearchAux(ctx context.Context, query, searchType string, customTypes []string) ([]graph.Fact, error) {
	return nil, nil
}

func (m *mockService) RelatedEntities(ctx context.Context, name string, relationTypes []string, depth int) ([]graph.RelatedEntity, error) {
	return nil, nil
}

func (m *mockService) EntityTimeline(ctx context.Context, name string, start, end *time.Time) ([]graph.Fact, error) {
	return nil, nil
}

func (m *mockService) Statistics(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (m *mockService) ClearGraph(ctx context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared++
	m.nodes = make(map[nodeKey]map[string]interface{})
	m.edges = make(map[edgeKey]struct{})
	return nil
}

func (m *mockService) Close(ctx context.Context) error { return nil }

func (m *mockService) Driver() neo4j.DriverWithContext { return nil }

// Store helpers.

func (m *mockService) upsertNode(label string, params map[string]interface{}) {
	name, _ := params["name"].(string)
	attrs := make(map[string]interface{}, len(params))
	for k, v := range params {
		attrs[k] = v
	}
	m.nodes[nodeKey{label, name}] = attrs
}

func (m *mockService) has(label, name string) bool {
	_, ok := m.nodes[nodeKey{label, name}]
	return ok
}

func (m *mockService) addEdge(fromLabel, fromName, typ, toLabel, toName string) {
	m.edges[edgeKey{fromLabel, fromName, typ, toLabel, toName}] = struct{}{}
}

func (m *mockService) hasEdge(fromLabel, fromName, typ, toLabel, toName string) bool {
	_, ok := m.edges[edgeKey{fromLabel, fromName, typ, toLabel, toName}]
	return ok
}

func (m *mockService) personPlace(person, edge, label, place string) {
	if m.has(LabelPerson, person) && m.has(label, place) {
		m.addEdge(LabelPerson, person, edge, label, place)
	}
}

func (m *mockService) propertyPlace(property, label, place string) {
	if m.has(LabelProperty, property) && m.has(label, place) {
		m.addEdge(LabelProperty, property, EdgeLocatedIn, label, place)
		m.addEdge(label, place, EdgeHasProperty, LabelProperty, property)
	}
}

func (m *mockService) countLabel(label string) int {
	n := 0
	for key := range m.nodes {
		if key.label == label {
			n++
		}
	}
	return n
}

func (m *mockService) nodeNames(label string) []string {
	var out []string
	for key := range m.nodes {
		if key.label == label {
			out = append(out, key.name)
		}
	}
	sort.Strings(out)
	return out
}

func (m *mockService) listNodes(label string, keys []string, desc bool) []graph.Row {
	names := m.nodeNames(label)
	if desc {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	rows := make([]graph.Row, 0, len(names))
	for _, name := range names {
		attrs := m.nodes[nodeKey{label, name}]
		values := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			values[k] = attrs[k]
		}
		rows = append(rows, graph.Row{Keys: keys, Values: values})
	}
	return rows
}

func (m *mockService) details(label, name string) []graph.Row {
	attrs, ok := m.nodes[nodeKey{label, name}]
	if !ok {
		return nil
	}
	return []graph.Row{{
		Keys:   []string{"attributes"},
		Values: map[string]interface{}{"attributes": attrs},
	}}
}

func (m *mockService) childrenOf(name string) []string {
	var out []string
	for e := range m.edges {
		if e.typ == EdgeParentOf && e.fromLabel == LabelPerson && e.fromName == name {
			out = append(out, e.toName)
		}
	}
	sort.Strings(out)
	return out
}

func (m *mockService) grandChildrenOf(name string) []string {
	seen := map[string]bool{}
	for _, child := range m.childrenOf(name) {
		for _, grand := range m.childrenOf(child) {
			seen[grand] = true
		}
	}
	return sortedSet(seen)
}

func (m *mockService) spousesOf(name string) []string {
	seen := map[string]bool{}
	for e := range m.edges {
		if e.typ != EdgeSpouseOf {
			continue
		}
		if e.fromName == name {
			seen[e.toName] = true
		} else if e.toName == name {
			seen[e.fromName] = true
		}
	}
	return sortedSet(seen)
}

func (m *mockService) descendantsOf(name string) []string {
	seen := map[string]bool{}
	frontier := []string{name}
	for depth := 0; depth < inheritorDepthCap && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, child := range m.childrenOf(cur) {
				if !seen[child] {
					seen[child] = true
					next = append(next, child)
				}
			}
		}
		frontier = next
	}
	return sortedSet(seen)
}

func (m *mockService) propertiesIn(label, place string) []graph.Row {
	var names []string
	for e := range m.edges {
		if e.typ == EdgeLocatedIn && e.fromLabel == LabelProperty && e.toLabel == label && e.toName == place {
			names = append(names, e.fromName)
		}
	}
	sort.Strings(names)
	rows := make([]graph.Row, 0, len(names))
	for _, name := range names {
		attrs := m.nodes[nodeKey{LabelProperty, name}]
		values := make(map[string]interface{}, len(propertyListKeys))
		for _, k := range propertyListKeys {
			values[k] = attrs[k]
		}
		rows = append(rows, graph.Row{Keys: propertyListKeys, Values: values})
	}
	return rows
}

func (m *mockService) relRows(label, name string) []graph.Row {
	var keys []edgeKey
	for e := range m.edges {
		if (e.fromLabel == label && e.fromName == name) || (e.toLabel == label && e.toName == name) {
			keys = append(keys, e)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	rowKeys := []string{"relationship", "attributes", "direction", "other", "other_labels"}
	rows := make([]graph.Row, 0, len(keys))
	for _, e := range keys {
		direction, other, otherLabel := "in", e.fromName, e.fromLabel
		if e.fromLabel == label && e.fromName == name {
			direction, other, otherLabel = "out", e.toName, e.toLabel
		}
		rows = append(rows, graph.Row{
			Keys: rowKeys,
			Values: map[string]interface{}{
				"relationship": e.typ,
				"attributes":   map[string]interface{}{},
				"direction":    direction,
				"other":        other,
				"other_labels": []interface{}{otherLabel},
			},
		})
	}
	return rows
}

// Row builders.

func nameRows(name string) []graph.Row {
	return []graph.Row{{
		Keys:   []string{"name"},
		Values: map[string]interface{}{"name": name},
	}}
}

func nameListRows(names []string) []graph.Row {
	rows := make([]graph.Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, graph.Row{
			Keys:   []string{"name"},
			Values: map[string]interface{}{"name": name},
		})
	}
	return rows
}

func countRows(n int) []graph.Row {
	return []graph.Row{{
		Keys:   []string{"count"},
		Values: map[string]interface{}{"count": int64(n)},
	}}
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
