package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aph/internal/adapters/storage/activity"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/user"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.stores.Users.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUserView))
}

func (s *Server) handleUserRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role string `json:"role"`
	}
	if !strictDecode(w, r, &in) {
		return
	}
	err := orchestrators.ExecuteChangeUserRole(r.Context(), actor(r), chi.URLParam(r, "id"), user.Role(in.Role),
		orchestrators.ChangeUserRoleDeps{Roles: s.auth, Activity: s.stores.Activity})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListActivity pages through the activity trail, newest first.
// ?userId= narrows it to one user.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", activity.DefaultLimit)
	if userID := r.URL.Query().Get("userId"); userID != "" {
		logs, err := s.stores.Activity.ListByUser(r.Context(), userID, limit)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
		return
	}
	logs, err := s.stores.Activity.List(r.Context(), limit, queryInt(r, "offset", 0))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.stores.Settings.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if !strictDecode(w, r, &in) {
		return
	}
	setting, err := orchestrators.ExecuteUpdateSetting(r.Context(), actor(r), in.Key, in.Value,
		orchestrators.UpdateSettingDeps{Settings: s.stores.Settings, Activity: s.stores.Activity})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// handlePaymentAnalytics summarizes payments dated in [from, to]. Both
// bounds accept YYYY-MM-DD or RFC 3339; the default is the last 30 days.
func (s *Server) handlePaymentAnalytics(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	from, ok := queryTime(r, "from", now.AddDate(0, 0, -30))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "from must be YYYY-MM-DD or RFC 3339")
		return
	}
	to, ok := queryTime(r, "to", now)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "to must be YYYY-MM-DD or RFC 3339")
		return
	}
	summary, err := s.stores.Analytics.Payments(r.Context(), from, to)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUserAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.stores.Analytics.Users(r.Context(), s.now())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleProgramAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.stores.Analytics.Programs(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// queryTime parses a date bound. A bare date as "to" covers the whole day.
func queryTime(r *http.Request, key string, fallback time.Time) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	if key == "to" {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
