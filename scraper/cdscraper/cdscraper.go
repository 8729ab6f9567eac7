// Package cdscraper retrieves departure boards of Czech railway stations,
// either from the JSON endpoint behind the cd.cz station pages or from an
// HTML departure table.
package cdscraper

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/underlx/delaywatch/scraper"
)

// maxResponseSize is the largest upstream body we are willing to read
const maxResponseSize = 1024 * 1024

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// readResponse reads a successful, reasonably sized response body
func readResponse(sourceID string, response *http.Response) ([]byte, error) {
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, scraper.NewFetchError(sourceID, "non-200 status code "+response.Status, nil)
	}
	if response.ContentLength > maxResponseSize {
		return nil, scraper.NewFetchError(sourceID, "response body unexpectedly big", nil)
	}

	// making sure they don't troll us
	content, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize+1))
	if err != nil {
		return nil, scraper.NewFetchError(sourceID, "reading response", err)
	}
	if len(content) > maxResponseSize {
		return nil, scraper.NewFetchError(sourceID, "response body unexpectedly big", nil)
	}
	return content, nil
}

// cleanText collapses runs of whitespace, as found in HTML cells
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
