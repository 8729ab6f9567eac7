package website

import (
	"html/template"
	"log"
	"net/http"

	"github.com/goodsign/monday"
	"github.com/gorilla/mux"
	"github.com/underlx/delaywatch/compute"
)

var webtemplate *template.Template
var webLog *log.Logger
var viewBuilder *compute.ViewBuilder
var ingester *compute.Ingester
var statsHandler *compute.StatsHandler
var settings Settings

// Settings contains what the website needs to know about the monitored station
type Settings struct {
	StationName string
	// Locale is used to format dates, e.g. "cs_CZ"
	Locale  string
	BaseURL string
}

// PageCommons contains information that is required by most page templates
type PageCommons struct {
	PageTitle   string
	StationName string
	Today       string
	LastBatch   string
}

// Initialize initializes the package
func Initialize(vb *compute.ViewBuilder, ing *compute.Ingester, sh *compute.StatsHandler, s Settings, log *log.Logger) {
	viewBuilder = vb
	ingester = ing
	statsHandler = sh
	settings = s
	if settings.Locale == "" {
		settings.Locale = string(monday.LocaleEnUS)
	}
	webLog = log

	ReloadTemplates()
}

// ConfigureRouter configures a router to handle website paths
func ConfigureRouter(router *mux.Router) {
	router.HandleFunc("/", HomePage)
	router.HandleFunc("/update", UpdatePage)
	router.HandleFunc("/feed", RSSFeed)
}

// ReloadTemplates reloads the templates for the website
func ReloadTemplates() {
	webtemplate = template.Must(template.New("index").Funcs(template.FuncMap{
		"formatCapturedAt": func(row compute.DepartureRow) string {
			return row.CapturedAt.Format("2006-01-02 15:04:05")
		},
		"platform": func(row compute.DepartureRow) string {
			if row.Platform == nil {
				return ""
			}
			return *row.Platform
		},
	}).Parse(indexTemplate))
}

func logf(format string, v ...interface{}) {
	if webLog != nil {
		webLog.Printf(format, v...)
	}
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.PageTitle}}</title></head>
<body>
<h1>{{.StationName}}</h1>
<p>{{.Today}}{{if .LastBatch}} &middot; last update {{.LastBatch}} ago{{end}}</p>
<form method="get" action="/">
	<input name="date" placeholder="YYYY-MM-DD" value="{{.Criteria.DatePrefix}}">
	<input name="train" placeholder="train" value="{{.Criteria.TrainNumber}}">
	<input name="hour" placeholder="hour" value="{{.Criteria.Hour}}">
	<button type="submit">Filter</button>
</form>
{{if .Reason}}<p class="error">{{.Reason}}</p>{{end}}
<table>
	<tr><th>Captured</th><th>Train</th><th>Carrier</th><th>Destination</th><th>Scheduled</th><th>Actual</th><th>Delay</th><th>Platform</th></tr>
	{{range .Rows}}<tr class="{{.Band}}">
		<td>{{formatCapturedAt .}}</td><td>{{.TrainNumber}}</td><td>{{.Carrier}}</td><td>{{.Destination}}</td>
		<td>{{.ScheduledTime}}</td><td>{{.ActualTimeDisplay}}</td><td style="color: {{.Color}}">{{.Label}}</td><td>{{platform .}}</td>
	</tr>{{end}}
</table>
</body>
</html>`

func writeError(w http.ResponseWriter, status int, err error) {
	logf("%s", err)
	w.WriteHeader(status)
}
