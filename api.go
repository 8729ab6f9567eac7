package main

import (
	"net/http"

	"github.com/underlx/delaywatch/resource"
	"github.com/yarf-framework/yarf"
)

// telemetryHandler counts the API calls made to the wrapped handler
type telemetryHandler struct {
	handler http.Handler
}

func (h telemetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case APIrequestTelemetry <- true:
	default:
	}
	h.handler.ServeHTTP(w, r)
}

// APIserver starts the API server
func APIserver() {
	y := yarf.New()

	v1 := yarf.RouteGroup("/v1")

	v1.Add("/departures", new(resource.Departure).WithViewBuilder(viewBuilder))
	v1.Add("/departures/latest", new(resource.Departure).WithViewBuilder(viewBuilder).LatestOnly())

	v1.Add("/platforms/:train", new(resource.Platform).WithViewBuilder(viewBuilder))

	v1.Add("/stats", new(resource.Stats).WithStatsHandler(statsHandler))

	v1.Add("/update", new(resource.Update).WithIngester(ingester))

	y.AddGroup(v1)

	y.Logger = webLog

	webLog.Println("Starting API server...")
	err := http.ListenAndServe(":12000", telemetryHandler{y})
	if err != nil {
		webLog.Println(err)
	}
	webLog.Println("API server terminated")
}
