package cdscraper

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/underlx/delaywatch/scraper"
)

// PlzenStationID is the cd.cz identifier of Plzeň hlavní nádraží
const PlzenStationID = "5473275"

// JSONEndpointURL returns the departure board endpoint of cd.cz for a station
func JSONEndpointURL(stationID string) string {
	return "https://www.cd.cz/stanice/" + url.PathEscape(stationID) + "/getopt"
}

// DefaultFormValues is the request body the cd.cz station page sends
var DefaultFormValues = url.Values{
	"language":  {"cs"},
	"isDeep":    {"false"},
	"toHistory": {"false"},
}

// FieldMap lists, for each field, the JSON keys that may carry it, in order of preference.
// Deployments of the endpoint do not agree on names.
type FieldMap struct {
	TrainNumber   []string
	Carrier       []string
	TargetStation []string
	Station       []string
	ScheduledTime []string
	Delay         []string
	TypeInfo      []string
	Platform      []string
}

// DefaultFieldMap matches the keys used by cd.cz
var DefaultFieldMap = FieldMap{
	TrainNumber:   []string{"TrainNumber", "Number"},
	Carrier:       []string{"Carrier"},
	TargetStation: []string{"TargetStation"},
	Station:       []string{"Station"},
	ScheduledTime: []string{"Time", "DepartureTime"},
	Delay:         []string{"Delay"},
	TypeInfo:      []string{"TypeInfo", "TrainType", "Type"},
	Platform:      []string{"Platform", "Track"},
}

// JSONScraper fetches departures from a form-encoded POST endpoint that
// replies with a JSON object holding a collection of trains
type JSONScraper struct {
	EndpointURL string
	// FormValues defaults to DefaultFormValues
	FormValues url.Values
	// CollectionKey defaults to "Trains"
	CollectionKey string
	// Fields defaults to DefaultFieldMap
	Fields     *FieldMap
	HTTPClient *http.Client
	Log        *log.Logger
}

// ID returns the ID of this scraper
func (sc *JSONScraper) ID() string {
	return "sc-cz-cd-json"
}

// Fetch retrieves one batch of departures
func (sc *JSONScraper) Fetch() ([]scraper.RawEntry, error) {
	form := sc.FormValues
	if form == nil {
		form = DefaultFormValues
	}

	req, err := http.NewRequest(http.MethodPost, sc.EndpointURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, scraper.NewFetchError(sc.ID(), "building request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := sc.HTTPClient
	if client == nil {
		client = defaultHTTPClient()
	}
	response, err := client.Do(req)
	if err != nil {
		return nil, scraper.NewFetchError(sc.ID(), "request failed", err)
	}

	content, err := readResponse(sc.ID(), response)
	if err != nil {
		return nil, err
	}
	return sc.decode(content)
}

func (sc *JSONScraper) decode(content []byte) ([]scraper.RawEntry, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, scraper.NewFetchError(sc.ID(), "unparsable payload", err)
	}

	key := sc.CollectionKey
	if key == "" {
		key = "Trains"
	}
	collection, ok := payload[key]
	if !ok {
		return nil, scraper.NewFetchError(sc.ID(), "payload has no "+strconv.Quote(key)+" collection", nil)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(collection, &items); err != nil || items == nil {
		return nil, scraper.NewFetchError(sc.ID(), strconv.Quote(key)+" is not an array", err)
	}

	fields := sc.Fields
	if fields == nil {
		fields = &DefaultFieldMap
	}

	entries := make([]scraper.RawEntry, 0, len(items))
	for i, item := range items {
		var obj map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil || obj == nil {
			// kept as an empty entry so the batch accounts for it
			sc.logf("Warning: train %d in response is not an object, got %s", i, item)
			entries = append(entries, scraper.RawEntry{})
			continue
		}
		entries = append(entries, scraper.RawEntry{
			TrainNumber:   stringField(obj, fields.TrainNumber),
			Carrier:       stringField(obj, fields.Carrier),
			TargetStation: stringField(obj, fields.TargetStation),
			Station:       stringField(obj, fields.Station),
			ScheduledTime: stringField(obj, fields.ScheduledTime),
			Delay:         stringField(obj, fields.Delay),
			TypeInfo:      stringField(obj, fields.TypeInfo),
			Platform:      stringField(obj, fields.Platform),
		})
	}
	return entries, nil
}

func (sc *JSONScraper) logf(format string, v ...interface{}) {
	if sc.Log != nil {
		sc.Log.Printf(format, v...)
	}
}

// stringField returns the first non-empty scalar value among keys
func stringField(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}
