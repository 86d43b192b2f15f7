package inheritance

import (
	"context"
	"errors"
	"testing"
)

func testPersons() []PersonRecord {
	return []PersonRecord{
		{
			Name:             "Alice Haddad",
			ResidenceCountry: "Lebanon",
			ResidenceCity:    "Beirut",
			Profession:       "merchant",
			Gender:           "female",
			BirthCity:        "Tripoli",
			BirthCountry:     "Lebanon",
			DeathCity:        "n/a",
			DeathCountry:     "n/a",
			Children:         []string{"Bob Haddad", "n/a"},
			Spouses:          []string{"Carol Haddad"},
		},
		{
			Name:             "Bob Haddad",
			ResidenceCountry: "France",
			ResidenceCity:    "Paris",
			Gender:           "male",
		},
		{
			Name:   "Carol Haddad",
			Gender: "female",
		},
	}
}

func testProperties() []PropertyRecord {
	return []PropertyRecord{
		{
			Name:      "Olive Grove",
			Lot:       "112",
			City:      "Tripoli",
			Country:   "Lebanon",
			Area:      1450,
			AreaUnit:  "m2",
			Shares:    2400,
			Owner:     "Alice Haddad",
			Possessed: true,
			Unsold:    true,
		},
	}
}

func TestPipeline_Run_BuildsExpectedGraph(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	rep, err := NewPipeline(svc).Run(ctx, testPersons(), testProperties())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Failures != 0 {
		t.Errorf("Expected no failures, got %d", rep.Failures)
	}
	if rep.Skipped != 0 {
		t.Errorf("Expected no skipped records, got %d", rep.Skipped)
	}
	if svc.cleared != 1 {
		t.Errorf("Expected one clear, got %d", svc.cleared)
	}

	if got := svc.countLabel(LabelPerson); got != 3 {
		t.Errorf("Expected 3 persons, got %d", got)
	}
	if got := svc.countLabel(LabelCountry); got != 2 {
		t.Errorf("Expected 2 countries, got %d", got)
	}
	if got := svc.countLabel(LabelCity); got != 3 {
		t.Errorf("Expected 3 cities, got %d", got)
	}
	if got := svc.countLabel(LabelProperty); got != 1 {
		t.Errorf("Expected 1 property, got %d", got)
	}

	edgeChecks := []struct {
		fromLabel, fromName, typ, toLabel, toName string
	}{
		{LabelPerson, "Alice Haddad", EdgeParentOf, LabelPerson, "Bob Haddad"},
		{LabelPerson, "Alice Haddad", EdgeSpouseOf, LabelPerson, "Carol Haddad"},
		{LabelPerson, "Alice Haddad", EdgeResidentOf, LabelCity, "Beirut"},
		{LabelPerson, "Alice Haddad", EdgeResidentOf, LabelCountry, "Lebanon"},
		{LabelPerson, "Alice Haddad", EdgeBornIn, LabelCity, "Tripoli"},
		{LabelPerson, "Alice Haddad", EdgeBornIn, LabelCountry, "Lebanon"},
		{LabelCountry, "Lebanon", EdgeHasCity, LabelCity, "Beirut"},
		{LabelCity, "Beirut", EdgeHasCountry, LabelCountry, "Lebanon"},
		{LabelCountry, "France", EdgeHasCity, LabelCity, "Paris"},
		{LabelProperty, "Olive Grove", EdgeOwnedBy, LabelPerson, "Alice Haddad"},
		{LabelPerson, "Alice Haddad", EdgeOwns, LabelProperty, "Olive Grove"},
		{LabelProperty, "Olive Grove", EdgeLocatedIn, LabelCity, "Tripoli"},
		{LabelProperty, "Olive Grove", EdgeLocatedIn, LabelCountry, "Lebanon"},
		{LabelCity, "Tripoli", EdgeHasProperty, LabelProperty, "Olive Grove"},
	}
	for _, e := range edgeChecks {
		if !svc.hasEdge(e.fromLabel, e.fromName, e.typ, e.toLabel, e.toName) {
			t.Errorf("Missing edge %s(%s)-[%s]->%s(%s)", e.fromLabel, e.fromName, e.typ, e.toLabel, e.toName)
		}
	}

	// The sentinel death places must not produce edges.
	if svc.hasEdge(LabelPerson, "Alice Haddad", EdgeDiedIn, LabelCity, "n/a") {
		t.Error("Sentinel death city produced an edge")
	}
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()
	pipe := NewPipeline(svc)

	if _, err := pipe.Run(ctx, testPersons(), testProperties()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	nodesAfterFirst := len(svc.nodes)
	edgesAfterFirst := len(svc.edges)

	if _, err := pipe.Run(ctx, testPersons(), testProperties()); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(svc.nodes) != nodesAfterFirst {
		t.Errorf("Node count changed across runs: %d then %d", nodesAfterFirst, len(svc.nodes))
	}
	if len(svc.edges) != edgesAfterFirst {
		t.Errorf("Edge count changed across runs: %d then %d", edgesAfterFirst, len(svc.edges))
	}
	if svc.cleared != 2 {
		t.Errorf("Expected two clears, got %d", svc.cleared)
	}
}

func TestPipeline_Run_NoSentinelNodes(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	if _, err := NewPipeline(svc).Run(ctx, testPersons(), testProperties()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for key := range svc.nodes {
		if key.name == "" || key.name == "n/a" {
			t.Errorf("Sentinel leaked into a %s node name", key.label)
		}
	}

	// The raw sentinel still lives on the person node as an attribute.
	attrs := svc.nodes[nodeKey{LabelPerson, "Alice Haddad"}]
	if attrs["death_city"] != "n/a" {
		t.Errorf("Expected raw sentinel on death_city, got %v", attrs["death_city"])
	}
}

func TestPipeline_Run_LastRecordWins(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	persons := []PersonRecord{
		{Name: "Alice Haddad", Profession: "merchant", Children: []string{"Bob Haddad"}},
		{Name: "Bob Haddad"},
		{Name: "Dina Haddad"},
		{Name: "Alice Haddad", Profession: "pharmacist", Children: []string{"Dina Haddad"}},
	}
	if _, err := NewPipeline(svc).Run(ctx, persons, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := svc.countLabel(LabelPerson); got != 3 {
		t.Errorf("Expected 3 persons after duplicate upsert, got %d", got)
	}
	attrs := svc.nodes[nodeKey{LabelPerson, "Alice Haddad"}]
	if attrs["profession"] != "pharmacist" {
		t.Errorf("Expected last record's profession, got %v", attrs["profession"])
	}
	if svc.hasEdge(LabelPerson, "Alice Haddad", EdgeParentOf, LabelPerson, "Bob Haddad") {
		t.Error("Edge from the overwritten record survived")
	}
	if !svc.hasEdge(LabelPerson, "Alice Haddad", EdgeParentOf, LabelPerson, "Dina Haddad") {
		t.Error("Edge from the last record is missing")
	}
}

func TestPipeline_Run_MissingReferenceTolerated(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	persons := []PersonRecord{
		{Name: "Alice Haddad", Children: []string{"Ghost"}},
	}
	rep, err := NewPipeline(svc).Run(ctx, persons, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Failures != 0 {
		t.Errorf("Missing reference must not count as failure, got %d", rep.Failures)
	}
	if svc.hasEdge(LabelPerson, "Alice Haddad", EdgeParentOf, LabelPerson, "Ghost") {
		t.Error("Edge to a missing node was created")
	}
}

func TestPipeline_Run_SkipsNamelessRecords(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	persons := []PersonRecord{
		{Name: "n/a", Profession: "merchant"},
		{Name: "Alice Haddad"},
	}
	properties := []PropertyRecord{
		{Name: "", Owner: "Alice Haddad"},
	}
	rep, err := NewPipeline(svc).Run(ctx, persons, properties)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Skipped != 2 {
		t.Errorf("Expected 2 skipped records, got %d", rep.Skipped)
	}
	if got := svc.countLabel(LabelPerson); got != 1 {
		t.Errorf("Expected 1 person, got %d", got)
	}
	if got := svc.countLabel(LabelProperty); got != 0 {
		t.Errorf("Expected no properties, got %d", got)
	}
}

func TestPipeline_Run_ClearFailureAborts(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()
	svc.clearErr = errors.New("store unreachable")

	rep, err := NewPipeline(svc).Run(ctx, testPersons(), testProperties())
	if err == nil {
		t.Fatal("Expected an error when the clear fails")
	}
	if rep != nil {
		t.Error("Expected no report on an aborted run")
	}
	if len(svc.nodes) != 0 {
		t.Error("No statements should run after a failed clear")
	}
}

func TestPipeline_Run_StatementFailureIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()
	svc.failOn[stmtUpsertCountry] = errors.New("boom")

	rep, err := NewPipeline(svc).Run(ctx, testPersons(), testProperties())
	if err != nil {
		t.Fatalf("Run must survive statement failures: %v", err)
	}
	if rep.Failures != 2 {
		t.Errorf("Expected 2 failures, one per country, got %d", rep.Failures)
	}
	if rep.Countries != 0 {
		t.Errorf("Expected no country upserts counted, got %d", rep.Countries)
	}
	if got := svc.countLabel(LabelCity); got != 3 {
		t.Errorf("City phase must still run, got %d cities", got)
	}
	if !svc.hasEdge(LabelPerson, "Alice Haddad", EdgeResidentOf, LabelCity, "Beirut") {
		t.Error("City residence edge must still land")
	}
	if svc.hasEdge(LabelPerson, "Alice Haddad", EdgeResidentOf, LabelCountry, "Lebanon") {
		t.Error("Country residence edge should match zero nodes")
	}
}

func TestPipeline_Run_VerificationRows(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	rep, err := NewPipeline(svc).Run(ctx, testPersons(), testProperties())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rep.PersonRows) != 3 {
		t.Fatalf("Expected 3 verification person rows, got %d", len(rep.PersonRows))
	}
	// Descending name order puts Carol first.
	if got := rep.PersonRows[0].String("name"); got != "Carol Haddad" {
		t.Errorf("Expected Carol Haddad first, got %s", got)
	}
	if len(rep.PropertyRows) != 1 {
		t.Fatalf("Expected 1 verification property row, got %d", len(rep.PropertyRows))
	}
	if got := rep.PropertyRows[0].String("name"); got != "Olive Grove" {
		t.Errorf("Expected Olive Grove, got %s", got)
	}
}

func TestPipeline_Run_ResidenceScenario(t *testing.T) {
	ctx := context.Background()
	svc := newMockService()

	persons := []PersonRecord{
		{Name: "Alice", Children: []string{"Bob"}, ResidenceCountry: "Lebanon", ResidenceCity: "Beirut"},
		{Name: "Bob"},
	}
	if _, err := NewPipeline(svc).Run(ctx, persons, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	residentEdges := 0
	for e := range svc.edges {
		if e.typ == EdgeResidentOf {
			residentEdges++
		}
	}
	if residentEdges != 2 {
		t.Errorf("Expected exactly 2 RESIDENT_OF edges, got %d", residentEdges)
	}
	if !svc.hasEdge(LabelPerson, "Alice", EdgeResidentOf, LabelCity, "Beirut") {
		t.Error("Missing city residence edge")
	}
	if !svc.hasEdge(LabelPerson, "Alice", EdgeResidentOf, LabelCountry, "Lebanon") {
		t.Error("Missing country residence edge")
	}
	if !svc.hasEdge(LabelCountry, "Lebanon", EdgeHasCity, LabelCity, "Beirut") {
		t.Error("Missing country-city edge")
	}
	if !svc.hasEdge(LabelPerson, "Alice", EdgeParentOf, LabelPerson, "Bob") {
		t.Error("Missing parent edge")
	}

	rows, err := NewQueries(svc).PropertiesInCity(ctx, "Beirut")
	if err != nil {
		t.Fatalf("PropertiesInCity failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no properties in Beirut, got %d", len(rows))
	}
}
