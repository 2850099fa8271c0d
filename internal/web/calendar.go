package web

import (
	"net/http"
	"strconv"
	"time"

	"classcal/internal/calendar"
	"classcal/internal/ics"
	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

const dateLayout = "2006-01-02"

// calendarResponse is the JSON shape for /api/calendar.
type calendarResponse struct {
	Title        string     `json:"title"`
	Mode         string     `json:"mode"`
	Selected     string     `json:"selected"`
	Today        string     `json:"today"`
	Weekdays     []string   `json:"weekdays"`
	LeadingBlank int        `json:"leading_blank"`
	Days         []*dayDTO  `json:"days"`
	Truncated    []string   `json:"truncated_ids,omitempty"`
	Loading      bool       `json:"loading"`
	MeetLoading  bool       `json:"meet_loading"`
	Alert        string     `json:"alert,omitempty"`
	Notice       string     `json:"notice,omitempty"`
	Detail       *detailDTO `json:"detail"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
}

// dayDTO is one grid cell; month placeholders encode as null.
type dayDTO struct {
	Date   string     `json:"date"`
	Today  bool       `json:"today"`
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	MeetLink    string    `json:"meet_link,omitempty"`
	Source      string    `json:"source"`
	Editable    bool      `json:"editable"`
}

type detailDTO struct {
	Event eventDTO `json:"event"`
	Link  string   `json:"link"`
}

func toEventDTO(ev model.Event) eventDTO {
	return eventDTO{
		ID:          ev.ID,
		Title:       ev.Title,
		Start:       ev.Start,
		End:         ev.End,
		Description: ev.Description,
		MeetLink:    ev.MeetLink,
		Source:      ev.Source,
		Editable:    ev.Editable(),
	}
}

func toCalendarResponse(s schedule.Snapshot) calendarResponse {
	resp := calendarResponse{
		Title:        s.Title,
		Mode:         string(s.Mode),
		Selected:     s.Selected.Format(dateLayout),
		Today:        s.Today.Format(dateLayout),
		Weekdays:     s.Weekdays,
		LeadingBlank: s.LeadingBlank,
		Days:         make([]*dayDTO, 0, len(s.Days)),
		Truncated:    s.Truncated,
		Loading:      s.Loading,
		MeetLoading:  s.MeetLoading,
		Alert:        s.Alert,
		Notice:       s.Notice,
	}
	if !s.LoadedAt.IsZero() {
		t := s.LoadedAt
		resp.LoadedAt = &t
	}
	for _, d := range s.Days {
		if d == nil {
			resp.Days = append(resp.Days, nil)
			continue
		}
		dto := &dayDTO{Date: d.Key(), Today: s.IsToday(d), Events: make([]eventDTO, 0, len(d.Events))}
		for _, ev := range d.Events {
			dto.Events = append(dto.Events, toEventDTO(ev))
		}
		resp.Days = append(resp.Days, dto)
	}
	if s.Detail.Open {
		resp.Detail = &detailDTO{Event: toEventDTO(s.Detail.Event), Link: s.Detail.Link}
	}
	return resp
}

// respond finishes a calendar action: forms go back to the HTML page,
// JSON clients get the updated view.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	if isForm(r) {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(s.page.Snapshot()))
}

// respondErr reports a failed action. Forms still go back to the page,
// where the alert is shown.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if isForm(r) {
		s.page.ReportError(err)
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	writeError(w, statusFor(err), err.Error())
}

// handleCalendar returns the current view. An optional ?date=YYYY-MM-DD
// jumps there first.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, s.location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		s.page.SetDate(d)
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(s.page.Snapshot()))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	dir, err := strconv.Atoi(in["direction"])
	if err != nil || (dir != 1 && dir != -1) {
		writeError(w, http.StatusBadRequest, "direction must be 1 or -1")
		return
	}
	s.page.Navigate(dir)
	s.respond(w, r)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	s.page.Today()
	s.respond(w, r)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	mode, err := calendar.ParseViewMode(in["mode"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.page.SetMode(mode)
	s.respond(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.page.Refresh(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respond(w, r)
}

func (s *Server) handleOpenEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := s.page.OpenEvent(r.PathValue("id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respond(w, r)
}

func (s *Server) handleCloseEvent(w http.ResponseWriter, r *http.Request) {
	s.page.CloseEvent()
	s.respond(w, r)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s.page.DismissAlert()
	s.respond(w, r)
}

func (s *Server) handleMeetLink(w http.ResponseWriter, r *http.Request) {
	if _, err := s.page.GenerateMeetLink(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respond(w, r)
}

// handleICS exports the cached events, recurring ones with their RRULE.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="classcal.ics"`)
	if err := ics.Encode(w, "Class Schedule", s.page.Events(), time.Now()); err != nil {
		appLog.Error("ics export failed", err)
	}
}

func (s *Server) location() *time.Location {
	loc, err := s.cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", s.cfg.Timezone)
		return time.Local
	}
	return loc
}
