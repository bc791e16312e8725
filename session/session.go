// ABOUTME: Explicit UI session cache created on login and cleared on logout
// ABOUTME: Holds navigation state (tab, list filters, calendar view, search)

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const keyPrefix = "session:"

var currentKey = []byte(keyPrefix + "current")

// Tabs shown by the dashboard and TUI.
const (
	TabPipeline  = "pipeline"
	TabContacts  = "contacts"
	TabCompanies = "companies"
	TabDeals     = "deals"
	TabCalendar  = "calendar"
)

// ErrNoSession is returned when no session has been started.
var ErrNoSession = errors.New("no active session")

// Session is the cached navigation state for one logged-in user.
type Session struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	TenantID     string         `json:"tenant_id"`
	Tab          string         `json:"tab,omitempty"`
	CompanyState string         `json:"company_state,omitempty"`
	ContactState string         `json:"contact_state,omitempty"`
	CalendarView string         `json:"calendar_view"`
	Search       string         `json:"search,omitempty"`
	Positions    map[string]int `json:"positions,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ApplyQuery copies tab, companyState and contactState from URL parameters.
// Absent parameters leave the current value untouched.
func (s *Session) ApplyQuery(q url.Values) {
	if q.Has("tab") {
		s.Tab = strings.TrimSpace(q.Get("tab"))
	}
	if q.Has("companyState") {
		s.CompanyState = strings.TrimSpace(q.Get("companyState"))
	}
	if q.Has("contactState") {
		s.ContactState = strings.TrimSpace(q.Get("contactState"))
	}
}

// Query renders the navigation state as URL parameters.
func (s *Session) Query() url.Values {
	q := url.Values{}
	if s.Tab != "" {
		q.Set("tab", s.Tab)
	}
	if s.CompanyState != "" {
		q.Set("companyState", s.CompanyState)
	}
	if s.ContactState != "" {
		q.Set("contactState", s.ContactState)
	}
	return q
}

// SetCalendarView accepts month or day; anything else resets to month.
func (s *Session) SetCalendarView(view string) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "day":
		s.CalendarView = "day"
	default:
		s.CalendarView = "month"
	}
}

// Store persists sessions in a KV backend.
type Store struct {
	kv  KV
	now func() time.Time
	mu  sync.Mutex
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Start begins a fresh session for the user, replacing any previous one.
func (st *Store) Start(userID, tenantID string) (*Session, error) {
	if userID == "" || tenantID == "" {
		return nil, fmt.Errorf("user and tenant are required to start a session")
	}
	if err := st.End(); err != nil {
		return nil, err
	}

	now := st.now().UTC()
	s := &Session{
		ID:           ulid.Make().String(),
		UserID:       userID,
		TenantID:     tenantID,
		Tab:          TabPipeline,
		CalendarView: "month",
		Positions:    map[string]int{},
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active session, or ErrNoSession.
func (st *Store) Current() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id, err := st.kv.Get(currentKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current session: %w", err)
	}

	data, err := st.kv.Get(sessionKey(string(id)))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.CalendarView == "" {
		s.CalendarView = "month"
	}
	return &s, nil
}

// Save writes s and marks it as the current session.
func (st *Store) Save(s *Session) error {
	if s == nil || s.ID == "" {
		return ErrNoSession
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	s.UpdatedAt = st.now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := st.kv.Set(sessionKey(s.ID), data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := st.kv.Set(currentKey, []byte(s.ID)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// End clears every session key. Safe to call with no active session.
func (st *Store) End() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	keys, err := keysWithPrefix(st.kv, []byte(keyPrefix))
	if err != nil {
		return fmt.Errorf("failed to list session keys: %w", err)
	}
	for _, k := range keys {
		if err := st.kv.Delete(k); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}

func sessionKey(id string) []byte {
	return []byte(keyPrefix + "data:" + id)
}
