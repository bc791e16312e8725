// ABOUTME: Shared dependencies and input validation for MCP tool handlers
// ABOUTME: Every handler is bound to one tenant and acting user
package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/calendar"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/harperreed/hirepipe/team"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Env carries what the handlers share.
type Env struct {
	DB       *sql.DB
	TenantID string
	UserID   string
	Health   pipeline.HealthConfig
	Stages   pipeline.StageConfig
	Cache    cache.Store
	Team     *team.Directory
	// Google lists live calendar events; nil leaves Google out of the view.
	Google calendar.EventLister
	Logger *zap.Logger
	Now    func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *zap.Logger {
	return logging.OrNop(e.Logger)
}

// Engine falls back to the stock rubric and alias table when Env leaves them unset.
func (e *Env) Engine() (*pipeline.Engine, error) {
	health, stages := e.Health, e.Stages
	if health.GreenDays == 0 && health.YellowDays == 0 {
		health = pipeline.DefaultHealthConfig()
	}
	if len(stages.Canonical) == 0 {
		stages = pipeline.DefaultStageConfig()
	}
	return pipeline.LoadEngine(e.DB, e.TenantID, health, stages, e.Now)
}

func (e *Env) totals(mapper *pipeline.StageMapper) *pipeline.TotalsService {
	return &pipeline.TotalsService{DB: e.DB, Cache: e.Cache, Mapper: mapper, Logger: e.Logger, TTL: time.Hour}
}

// checkInput runs struct-tag validation and flattens the result into one error.
func checkInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be an email address", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a UUID", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// jsonName converts a Go field name like CompanyName to company_name.
func jsonName(field string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range field {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}

// ParseTime accepts RFC3339 or a bare YYYY-MM-DD date. Empty input
// yields nil, nil.
func ParseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if d, derr := time.Parse("2006-01-02", value); derr == nil {
			return &d, nil
		}
		return nil, fmt.Errorf("invalid %s format (use ISO 8601/RFC3339): %w", field, err)
	}
	return &t, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
