package resource

import (
	"encoding/json"
	"encoding/xml"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/underlx/delaywatch/compute"
	"github.com/yarf-framework/yarf"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"
)

type resource struct {
	yarf.Resource
	views    *compute.ViewBuilder
	ingester *compute.Ingester
	stats    *compute.StatsHandler
}

// RenderData writes the encoded representation of data with status code 200.
// Encoding used will be idented JSON, non-idented JSON, Msgpack or XML
func RenderData(c *yarf.Context, data interface{}) {
	RenderDataWithStatus(c, http.StatusOK, data)
}

// RenderDataWithStatus writes the encoded representation of data with the given status code
func RenderDataWithStatus(c *yarf.Context, status int, data interface{}) {
	accept := c.Request.Header.Get("Accept")
	var encoded []byte
	var err error
	switch {
	case strings.Contains(accept, "msgpack"):
		c.Response.Header().Set("Content-Type", "application/msgpack")
		encoded, err = msgpack.Marshal(data)
	case strings.Contains(accept, "xml") && !strings.Contains(accept, "xhtml"):
		c.Response.Header().Set("Content-Type", "application/xml; charset=utf-8")
		encoded, err = xml.Marshal(data)
	case strings.Contains(accept, "json"):
		c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
		encoded, err = json.Marshal(data)
	default:
		c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
		encoded, err = json.MarshalIndent(data, "", "  ")
	}
	if err != nil {
		log.Println(err)
		c.Response.WriteHeader(http.StatusInternalServerError)
		c.Response.Write([]byte(err.Error()))
		return
	}
	c.Response.WriteHeader(status)
	c.Response.Write(encoded)
}

func badRequest(msg, body string) error {
	return &yarf.CustomError{
		HTTPCode:  http.StatusBadRequest,
		ErrorMsg:  msg,
		ErrorBody: body,
	}
}

// limitParam reads the limit query parameter. 0 means the store default.
func limitParam(c *yarf.Context) (int, error) {
	s := c.Request.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 0 {
		return 0, badRequest("Invalid limit", "limit must be a non-negative integer")
	}
	return limit, nil
}
