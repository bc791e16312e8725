// ABOUTME: Tests for deal database operations
// ABOUTME: Covers JSON round-trips of stage data and associations plus filters
package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

func f64(v float64) *float64 { return &v }

func TestCreateAndGetDeal(t *testing.T) {
	db := setupTestDB(t)

	deal := &models.Deal{
		TenantID: testTenant,
		Name:     "Warehouse staffing",
		Stage:    "Qualification",
		StageData: &models.StageData{Qualification: &models.QualificationData{
			ExpectedAveragePayRate: f64(16),
			ExpectedAverageMarkup:  f64(40),
			StaffPlacementTimeline: &models.PlacementTimeline{Starting: f64(2), After180Days: f64(5)},
		}},
		Associations: models.Associations{
			Companies:   []models.Ref{models.IDRef("c1")},
			Salespeople: []models.Ref{{Kind: models.RefObject, ID: "u1", Name: "Una"}},
		},
		Probability: f64(30),
	}

	if err := CreateDeal(db, deal); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}
	if deal.ID == uuid.Nil {
		t.Fatal("Deal ID was not set")
	}

	got, err := GetDeal(db, testTenant, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetDeal returned nil")
	}
	if got.Name != deal.Name || got.Stage != deal.Stage {
		t.Errorf("Got %q/%q, want %q/%q", got.Name, got.Stage, deal.Name, deal.Stage)
	}
	q := got.Qualification()
	if q == nil || q.StaffPlacementTimeline == nil || *q.StaffPlacementTimeline.After180Days != 5 {
		t.Errorf("Qualification data did not round-trip: %+v", q)
	}
	if got.EstimatedRevenue != nil {
		t.Errorf("Expected nil estimated revenue, got %v", *got.EstimatedRevenue)
	}
	if got.Probability == nil || *got.Probability != 30 {
		t.Errorf("Expected probability 30, got %v", got.Probability)
	}
	sp := got.Associations.Salespeople
	if len(sp) != 1 || sp[0].Kind != models.RefObject || sp[0].Name != "Una" {
		t.Errorf("Salespeople did not round-trip: %+v", sp)
	}
	if ids := got.CompanyIDs(); len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("Expected company c1, got %v", ids)
	}
}

func TestGetDealOtherTenant(t *testing.T) {
	db := setupTestDB(t)

	deal := &models.Deal{TenantID: testTenant, Name: "Hidden", Stage: "Discovery"}
	if err := CreateDeal(db, deal); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	got, err := GetDeal(db, "tenant-b", deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if got != nil {
		t.Error("Deal leaked across tenants")
	}
}

func TestUpdateDeal(t *testing.T) {
	db := setupTestDB(t)

	deal := &models.Deal{TenantID: testTenant, Name: "Test Deal", Stage: "Discovery"}
	if err := CreateDeal(db, deal); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	deal.Stage = "Negotiation"
	deal.EstimatedRevenue = f64(50000)
	if err := UpdateDeal(db, deal); err != nil {
		t.Fatalf("UpdateDeal failed: %v", err)
	}

	got, err := GetDeal(db, testTenant, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if got.Stage != "Negotiation" {
		t.Errorf("Expected stage Negotiation, got %s", got.Stage)
	}
	if got.EstimatedRevenue == nil || *got.EstimatedRevenue != 50000 {
		t.Errorf("Expected revenue 50000, got %v", got.EstimatedRevenue)
	}

	missing := &models.Deal{ID: uuid.New(), TenantID: testTenant, Name: "Ghost", Stage: "Discovery"}
	if err := UpdateDeal(db, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating missing deal, got %v", err)
	}
}

func TestFindDealsFilters(t *testing.T) {
	db := setupTestDB(t)

	deals := []*models.Deal{
		{TenantID: testTenant, Name: "Owned via array", Stage: "Discovery",
			Associations: models.Associations{Salespeople: []models.Ref{models.IDRef("u1")}, Companies: []models.Ref{models.IDRef("c1")}}},
		{TenantID: testTenant, Name: "Owned via legacy", Stage: "Discovery",
			LegacyOwners: models.LegacyOwners{SalesOwnerID: "u1"}},
		{TenantID: testTenant, Name: "Someone else", Stage: "Negotiation",
			Associations: models.Associations{Salespeople: []models.Ref{models.IDRef("u2")}, Companies: []models.Ref{models.IDRef("c1")}}},
	}
	for _, d := range deals {
		if err := CreateDeal(db, d); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}
	}

	owned, err := FindDeals(db, testTenant, DealFilter{OwnerID: "u1"})
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("Expected 2 deals for u1, got %d", len(owned))
	}

	byStage, err := FindDeals(db, testTenant, DealFilter{Stage: "Negotiation"})
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(byStage) != 1 || byStage[0].Name != "Someone else" {
		t.Errorf("Stage filter returned %+v", byStage)
	}

	byCompany, err := FindDeals(db, testTenant, DealFilter{CompanyID: "c1", Limit: 1})
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if len(byCompany) != 1 {
		t.Errorf("Expected limit to cap company results at 1, got %d", len(byCompany))
	}
}

func TestUpdateDealSignals(t *testing.T) {
	db := setupTestDB(t)

	deal := &models.Deal{TenantID: testTenant, Name: "Signals", Stage: "Discovery"}
	if err := CreateDeal(db, deal); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	last := time.Now().Add(-time.Hour)
	if err := UpdateDealSignals(db, testTenant, deal.ID, 6, 3, &last); err != nil {
		t.Fatalf("UpdateDealSignals failed: %v", err)
	}

	got, err := GetDeal(db, testTenant, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if got.ActivityCount7d == nil || *got.ActivityCount7d != 6 {
		t.Errorf("Expected 6 activities, got %v", got.ActivityCount7d)
	}
	if got.EmailCount7d == nil || *got.EmailCount7d != 3 {
		t.Errorf("Expected 3 emails, got %v", got.EmailCount7d)
	}
	if got.LastActivityAt == nil || !got.LastActivityAt.Equal(last) {
		t.Errorf("Expected last activity %v, got %v", last, got.LastActivityAt)
	}
}
