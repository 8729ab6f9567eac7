package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/underlx/delaywatch/website"
)

// WebServer starts the web server
func WebServer() {
	router := mux.NewRouter().StrictSlash(true)

	webLog.Println("Starting Web server...")

	website.Initialize(viewBuilder, ingester, statsHandler, website.Settings{
		StationName: secretOrDefault("stationName", DefaultStationName),
		Locale:      secretOrDefault("displayLocale", "cs_CZ"),
		BaseURL:     secretOrDefault("websiteURL", "http://localhost:8089"),
	}, webLog)
	website.ConfigureRouter(router)

	server := http.Server{
		Addr:    ":8089",
		Handler: router,
	}

	err := server.ListenAndServe()
	if err != nil {
		webLog.Println(err)
	}
	webLog.Println("Web server terminated")
}
