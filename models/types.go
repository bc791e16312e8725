// ABOUTME: Data models for tenant-scoped staffing CRM entities
// ABOUTME: Defines Contact, Company, Deal, PipelineStage, Task, Activity and CalendarEvent structs
package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Associations holds the denormalized reference arrays stored on an entity.
type Associations struct {
	Companies   []Ref `json:"companies,omitempty"`
	Contacts    []Ref `json:"contacts,omitempty"`
	Deals       []Ref `json:"deals,omitempty"`
	Salespeople []Ref `json:"salespeople,omitempty"`
	Locations   []Ref `json:"locations,omitempty"`
	Divisions   []Ref `json:"divisions,omitempty"`
}

// LegacyOwners carries the single-owner fields that predate associations.
type LegacyOwners struct {
	SalesOwnerID   string `json:"salesOwnerId,omitempty"`
	AccountOwnerID string `json:"accountOwnerId,omitempty"`
	Owner          string `json:"owner,omitempty"`
}

type Contact struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	FullName  string    `json:"fullName,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	JobTitle  string    `json:"jobTitle,omitempty"`
	// CompanyID is the legacy single-company link.
	CompanyID    string       `json:"companyId,omitempty"`
	Associations Associations `json:"associations"`
	LegacyOwners
	State           string     `json:"state,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	IsActive        bool       `json:"isActive"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DisplayName prefers FullName and falls back to first + last.
func (c Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Company struct {
	ID           uuid.UUID    `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Name         string       `json:"companyName"`
	Domain       string       `json:"domain,omitempty"`
	Industry     string       `json:"industry,omitempty"`
	State        string       `json:"state,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Associations Associations `json:"associations"`
	LegacyOwners
	// Cached totals. Nil means never computed.
	PipelineValue  *PipelineValue           `json:"pipelineValue,omitempty"`
	ClosedValue    *ClosedValue             `json:"closedValue,omitempty"`
	DivisionTotals map[string]PipelineValue `json:"divisionTotals,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// UnmarshalJSON reads the display name from companyName, falling back to
// name for older documents.
func (c *Company) UnmarshalJSON(data []byte) error {
	type plain Company
	aux := struct {
		*plain
		AltName string `json:"name"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Name == "" {
		c.Name = aux.AltName
	}
	return nil
}

type CompanyLocation struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Division struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PipelineValue is the open-pipeline range for a company or division.
type PipelineValue struct {
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	DealCount int     `json:"dealCount"`
}

// ClosedValue sums deals that reached a won stage.
type ClosedValue struct {
	Total     float64 `json:"total"`
	DealCount int     `json:"dealCount"`
}

// PlacementTimeline is the expected headcount ramp at each checkpoint.
type PlacementTimeline struct {
	Starting     *float64 `json:"starting,omitempty"`
	After30Days  *float64 `json:"after30Days,omitempty"`
	After90Days  *float64 `json:"after90Days,omitempty"`
	After180Days *float64 `json:"after180Days,omitempty"`
}

type QualificationData struct {
	ExpectedAveragePayRate *float64           `json:"expectedAveragePayRate,omitempty"`
	ExpectedAverageMarkup  *float64           `json:"expectedAverageMarkup,omitempty"`
	StaffPlacementTimeline *PlacementTimeline `json:"staffPlacementTimeline,omitempty"`
}

type StageData struct {
	Qualification *QualificationData `json:"qualification,omitempty"`
}

type Deal struct {
	ID               uuid.UUID    `json:"id"`
	TenantID         string       `json:"tenant_id"`
	Name             string       `json:"name"`
	Stage            string       `json:"stage"`
	EstimatedRevenue *float64     `json:"estimatedRevenue,omitempty"`
	StageData        *StageData   `json:"stageData,omitempty"`
	Associations     Associations `json:"associations"`
	LegacyOwners
	Probability *float64   `json:"probability,omitempty"`
	CloseDate   *time.Time `json:"closeDate,omitempty"`
	DivisionID  string     `json:"divisionId,omitempty"`
	// Optional activity signals over the trailing seven days.
	ActivityCount7d *int       `json:"activityCount7d,omitempty"`
	EmailCount7d    *int       `json:"emailCount7d,omitempty"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Qualification returns the qualification-stage data, or nil.
func (d Deal) Qualification() *QualificationData {
	if d.StageData == nil {
		return nil
	}
	return d.StageData.Qualification
}

// LastTouched returns the later of UpdatedAt and LastActivityAt.
func (d Deal) LastTouched() time.Time {
	t := d.UpdatedAt
	if d.LastActivityAt != nil && d.LastActivityAt.After(t) {
		t = *d.LastActivityAt
	}
	return t
}

type PipelineStage struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Probability float64   `json:"probability"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

type Salesperson struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Active   bool   `json:"active"`
}

// Ref converts the salesperson to an object-form association entry.
func (s Salesperson) Ref() Ref {
	return Ref{Kind: RefObject, ID: s.ID, Name: s.Name, Email: s.Email}
}

type EmailTemplate struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity types.
const (
	ActivityEmail         = "email"
	ActivityCall          = "call"
	ActivityMeeting       = "meeting"
	ActivityNote          = "note"
	ActivityCalendarEvent = "calendar_event"
)

type Activity struct {
	ID           uuid.UUID    `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Type         string       `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	EndAt        *time.Time   `json:"end_at,omitempty"`
	Associations Associations `json:"associations"`
	// ExternalID is the upstream id for imported records (Google event id).
	ExternalID string    `json:"external_id,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Calendar event source types.
const (
	EventCRMAppointment = "crm_appointment"
	EventGoogleCalendar = "google_calendar"
	EventSyncedActivity = "synced_activity"
)

// RelatedRef points a calendar event back at a CRM record.
type RelatedRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type CalendarEvent struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	AllDay    bool        `json:"all_day,omitempty"`
	Type      string      `json:"type"`
	Color     string      `json:"color"`
	RelatedTo *RelatedRef `json:"related_to,omitempty"`
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)
