// ABOUTME: Live calendar feed over a websocket
// ABOUTME: Pushes the merged event list whenever any source changes
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/hirepipe/calendar"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin admits clients without an Origin header and pages served by
// this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// writeWait bounds a single push to the browser.
const writeWait = 10 * time.Second

// CalendarUpdate is one websocket frame.
type CalendarUpdate struct {
	View   string                 `json:"view"`
	Start  string                 `json:"start"`
	End    string                 `json:"end"`
	Events []handlers.EventOutput `json:"events"`
}

func (s *Server) handleCalendarSocket(w http.ResponseWriter, r *http.Request) {
	view, err := calendar.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fixed, err := handlers.ParseTime("date", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Without a date the window follows the clock so a month view rolls
	// over at midnight.
	anchor := s.now
	if fixed != nil {
		anchor = func() time.Time { return *fixed }
	}
	userID := ""
	if mine(r) {
		userID = s.env.UserID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	window := func() (time.Time, time.Time) {
		return calendar.Range(view, anchor())
	}
	fetchers := calendar.StandardSources(s.env.DB, s.env.TenantID, userID, s.env.Google, window, s.logger)
	agg := calendar.NewAggregator(s.logger, calendar.AsSources(fetchers)...)
	updates, unsubscribe := agg.Subscribe()
	defer unsubscribe()

	go func() {
		if err := agg.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("calendar aggregator stopped", zap.Error(err))
		}
	}()

	// Reads only detect the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case events, ok := <-updates:
			if !ok {
				return
			}
			if err := s.push(conn, view, anchor(), events); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) push(conn *websocket.Conn, view calendar.View, anchor time.Time, events []models.CalendarEvent) error {
	start, end := calendar.Range(view, anchor)
	events = calendar.InRange(events, start, end)

	update := CalendarUpdate{
		View:   string(view),
		Start:  start.Format(time.RFC3339),
		End:    end.Format(time.RFC3339),
		Events: make([]handlers.EventOutput, len(events)),
	}
	for i, ev := range events {
		update.Events[i] = handlers.EventToOutput(ev)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(update)
}
