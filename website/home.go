package website

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goodsign/monday"
	"github.com/hako/durafmt"
	"github.com/rickb777/date"
	"github.com/underlx/delaywatch/compute"
	"github.com/underlx/delaywatch/dataobjects"
)

// dayLayouts override the monday full format for locales whose month names
// monday only knows in the nominative
var dayLayouts = map[monday.Locale]string{
	monday.LocaleCsCZ: "Monday 2. 1. 2006",
}

// formatDay formats a calendar day for the page header in the given locale
func formatDay(t time.Time, locale string) string {
	l := monday.Locale(locale)
	layout, ok := dayLayouts[l]
	if !ok {
		layout, ok = monday.FullFormatsByLocale[l]
	}
	if !ok {
		l = monday.LocaleEnUS
		layout = monday.FullFormatsByLocale[l]
	}
	return monday.Format(t, layout, l)
}

// InitPageCommons fills PageCommons with the station information
func InitPageCommons(title string) PageCommons {
	commons := PageCommons{
		PageTitle:   title,
		StationName: settings.StationName,
		Today:       formatDay(date.Today().Local(), settings.Locale),
	}
	if statsHandler != nil {
		if s := statsHandler.Snapshot(); s.Batches > 0 {
			commons.LastBatch = durafmt.ParseShort(s.LastBatchAgo.Truncate(time.Second)).String()
		}
	}
	return commons
}

// HomePage serves the home page, with the latest departures or those matching the query parameters
func HomePage(w http.ResponseWriter, r *http.Request) {
	if DEBUG {
		ReloadTemplates()
	}
	query := r.URL.Query()
	criteria := dataobjects.Criteria{
		DatePrefix:  query.Get("date"),
		TrainNumber: query.Get("train"),
		Hour:        query.Get("hour"),
	}

	view := viewBuilder.Filtered(criteria, dataobjects.DefaultQueryLimit)

	p := struct {
		PageCommons
		Criteria dataobjects.Criteria
		Rows     []compute.DepartureRow
		Reason   string
	}{
		PageCommons: InitPageCommons(fmt.Sprintf("Departures from %s", settings.StationName)),
		Criteria:    criteria,
		Rows:        view.Rows,
		Reason:      view.Reason,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := webtemplate.ExecuteTemplate(w, "index", p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}

// UpdatePage runs one ingestion batch and reports the outcome as text
func UpdatePage(w http.ResponseWriter, r *http.Request) {
	result := ingester.RunBatch()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !result.OK {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "ERROR: %s\n", result.Reason)
		return
	}
	fmt.Fprintf(w, "OK: %s\n", result.Reason)
}
