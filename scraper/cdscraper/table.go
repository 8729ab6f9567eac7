package cdscraper

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/underlx/delaywatch/scraper"
)

// DefaultTableSelector identifies the departure table in a page
const DefaultTableSelector = "table#departures"

// cells per data row: carrier, train number, destination, scheduled time, actual time, delay
const tableColumns = 6

// TableScraper fetches departures from an HTML page holding one departure table
type TableScraper struct {
	PageURL string
	// TableSelector defaults to DefaultTableSelector
	TableSelector string
	HTTPClient    *http.Client
	Log           *log.Logger
}

// ID returns the ID of this scraper
func (sc *TableScraper) ID() string {
	return "sc-cz-html-table"
}

// Fetch retrieves one batch of departures
func (sc *TableScraper) Fetch() ([]scraper.RawEntry, error) {
	client := sc.HTTPClient
	if client == nil {
		client = defaultHTTPClient()
	}
	response, err := client.Get(sc.PageURL)
	if err != nil {
		return nil, scraper.NewFetchError(sc.ID(), "request failed", err)
	}

	content, err := readResponse(sc.ID(), response)
	if err != nil {
		return nil, err
	}
	return sc.parse(content)
}

func (sc *TableScraper) parse(content []byte) ([]scraper.RawEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, scraper.NewFetchError(sc.ID(), "unparsable document", err)
	}

	selector := sc.TableSelector
	if selector == "" {
		selector = DefaultTableSelector
	}
	tables := doc.Find(selector)
	if tables.Length() != 1 {
		return nil, scraper.NewFetchError(sc.ID(),
			fmt.Sprintf("expected exactly one table matching %q, found %d", selector, tables.Length()), nil)
	}

	entries := []scraper.RawEntry{}
	tables.First().Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header
			return
		}
		cells := row.Find("td")
		if cells.Length() < tableColumns {
			if sc.Log != nil {
				sc.Log.Printf("Warning: row %d has %d cells instead of %d", i, cells.Length(), tableColumns)
			}
			entries = append(entries, scraper.RawEntry{})
			return
		}
		cell := func(n int) string {
			return cleanText(cells.Eq(n).Text())
		}
		// the actual time, cell 4, is derived again from the delay
		entries = append(entries, scraper.RawEntry{
			Carrier:       cell(0),
			TrainNumber:   cell(1),
			TargetStation: cell(2),
			ScheduledTime: cell(3),
			Delay:         cell(5),
		})
	})
	return entries, nil
}
