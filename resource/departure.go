package resource

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/thoas/go-funk"
	"github.com/underlx/delaywatch/compute"
	"github.com/underlx/delaywatch/dataobjects"
	"github.com/yarf-framework/yarf"
)

// Departure composites resource
type Departure struct {
	resource
	latestOnly bool
}

type apiDeparture struct {
	CapturedAt        time.Time `msgpack:"capturedAt" json:"capturedAt" xml:"capturedAt"`
	TrainNumber       string    `msgpack:"train" json:"train" xml:"train"`
	Carrier           string    `msgpack:"carrier" json:"carrier" xml:"carrier"`
	Destination       string    `msgpack:"destination" json:"destination" xml:"destination"`
	ScheduledTime     string    `msgpack:"scheduled" json:"scheduled" xml:"scheduled"`
	ActualTimeDisplay string    `msgpack:"actual" json:"actual" xml:"actual"`
	DelayMinutes      int       `msgpack:"delay" json:"delay" xml:"delay"`
	Platform          *string   `msgpack:"platform" json:"platform" xml:"platform,omitempty"`
	Band              string    `msgpack:"band" json:"band" xml:"band"`
	Label             string    `msgpack:"label" json:"label" xml:"label"`
	Emphasis          string    `msgpack:"emphasis" json:"emphasis" xml:"emphasis"`
}

type apiDepartureList struct {
	XMLName    xml.Name       `msgpack:"-" json:"-" xml:"departures"`
	Departures []apiDeparture `msgpack:"departures" json:"departures" xml:"departure"`
	Error      string         `msgpack:"error,omitempty" json:"error,omitempty" xml:"error,omitempty"`
}

// WithViewBuilder associates a ViewBuilder with this resource
func (r *Departure) WithViewBuilder(views *compute.ViewBuilder) *Departure {
	r.views = views
	return r
}

// LatestOnly makes this resource ignore filter parameters
func (r *Departure) LatestOnly() *Departure {
	r.latestOnly = true
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Departure) Get(c *yarf.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	query := c.Request.URL.Query()
	bands := []compute.Band{}
	for _, name := range query["band"] {
		for _, n := range strings.Split(name, ",") {
			band, ok := compute.ParseBand(strings.TrimSpace(n))
			if !ok {
				return badRequest("Invalid band", "band must be one of "+strings.Join(bandNames(), ", "))
			}
			if !funk.Contains(bands, band) {
				bands = append(bands, band)
			}
		}
	}

	var view compute.DepartureView
	if r.latestOnly {
		view = r.views.Latest(limit, bands...)
	} else {
		view = r.views.Filtered(dataobjects.Criteria{
			DatePrefix:  query.Get("date"),
			TrainNumber: query.Get("train"),
			Hour:        query.Get("hour"),
		}, limit, bands...)
	}

	data := apiDepartureList{
		Departures: []apiDeparture{},
		Error:      view.Reason,
	}
	for _, row := range view.Rows {
		data.Departures = append(data.Departures, apiDeparture{
			CapturedAt:        row.CapturedAt,
			TrainNumber:       row.TrainNumber,
			Carrier:           row.Carrier,
			Destination:       row.Destination,
			ScheduledTime:     row.ScheduledTime,
			ActualTimeDisplay: row.ActualTimeDisplay,
			DelayMinutes:      row.DelayMinutes,
			Platform:          row.Platform,
			Band:              row.Band.String(),
			Label:             row.Label,
			Emphasis:          row.Emphasis,
		})
	}

	status := http.StatusOK
	switch {
	case errors.Is(view.Err, dataobjects.ErrInvalidFilter):
		status = http.StatusBadRequest
	case view.Err != nil:
		status = http.StatusServiceUnavailable
	}
	RenderDataWithStatus(c, status, data)
	return nil
}

func bandNames() []string {
	return funk.Map(compute.Bands, func(b compute.Band) string {
		return b.String()
	}).([]string)
}
