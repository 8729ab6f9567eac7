package website

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/feeds"
	"github.com/underlx/delaywatch/compute"
	"github.com/underlx/delaywatch/dataobjects"
)

// RSSFeed serves a feed with the recent moderate and severe delays
func RSSFeed(w http.ResponseWriter, r *http.Request) {
	view := viewBuilder.Latest(dataobjects.MaxQueryLimit, compute.BandModerate, compute.BandSevere)
	if !view.OK() {
		writeError(w, http.StatusServiceUnavailable, view.Err)
		return
	}

	now := time.Now()
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Delays at %s", settings.StationName),
		Link:        &feeds.Link{Href: settings.BaseURL + "/"},
		Description: fmt.Sprintf("Trains departing %s with a delay of 5 minutes or more", settings.StationName),
		Created:     now,
	}

	for _, row := range view.Rows {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:    fmt.Sprintf("%s#%s#%d", row.TrainNumber, row.ScheduledTime, row.CapturedAt.Unix()),
			Title: fmt.Sprintf("%s to %s: %s", row.TrainNumber, row.Destination, row.Label),
			Link: &feeds.Link{Href: fmt.Sprintf("%s/?train=%s&date=%s",
				settings.BaseURL, url.QueryEscape(row.TrainNumber), row.CapturedAt.Format("2006-01-02"))},
			Description: fmt.Sprintf("%s %s, departing %s", row.Carrier, row.TrainNumber, row.ActualTimeDisplay),
			Created:     row.CapturedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}
