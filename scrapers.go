package main

import (
	"fmt"

	"github.com/underlx/delaywatch/compute"
	"github.com/underlx/delaywatch/scraper"
	"github.com/underlx/delaywatch/scraper/cdscraper"
)

// SetUpSource builds the departure source selected in the keybox
func SetUpSource() (scraper.Source, error) {
	kind := secretOrDefault("sourceKind", "json")
	switch kind {
	case "json":
		sc := &cdscraper.JSONScraper{
			EndpointURL: secretOrDefault("sourceURL", cdscraper.JSONEndpointURL(cdscraper.PlzenStationID)),
			Log:         scraperLog,
		}
		scraperLog.Println("Using structured feed", sc.EndpointURL)
		return sc, nil
	case "html":
		pageURL, present := secrets.Get("sourceURL")
		if !present {
			return nil, fmt.Errorf("SetUpSource: sourceURL is required for the html source")
		}
		sc := &cdscraper.TableScraper{
			PageURL:       pageURL,
			TableSelector: secretOrDefault("tableSelector", ""),
			Log:           scraperLog,
		}
		scraperLog.Println("Using departure board page", sc.PageURL)
		return sc, nil
	}
	return nil, fmt.Errorf("SetUpSource: unknown sourceKind %q", kind)
}

// SetUpNormalizer builds the normalizer, with the carrier table from the
// keybox carriersPath file if one is configured
func SetUpNormalizer() (*compute.Normalizer, error) {
	path, present := secrets.Get("carriersPath")
	if !present {
		return &compute.Normalizer{Carriers: compute.DefaultCarrierTable}, nil
	}
	table, err := compute.LoadCarrierTable(path)
	if err != nil {
		return nil, err
	}
	mainLog.Printf("Loaded %d carrier aliases from %s", len(table.Aliases), path)
	return &compute.Normalizer{Carriers: table}, nil
}
