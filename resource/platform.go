package resource

import (
	"github.com/underlx/delaywatch/compute"
	"github.com/yarf-framework/yarf"
)

// Platform composites resource
type Platform struct {
	resource
}

type apiPlatform struct {
	TrainNumber string `msgpack:"train" json:"train" xml:"train"`
	Platform    string `msgpack:"platform" json:"platform" xml:"platform"`
	Known       bool   `msgpack:"known" json:"known" xml:"known"`
}

// WithViewBuilder associates a ViewBuilder with this resource
func (r *Platform) WithViewBuilder(views *compute.ViewBuilder) *Platform {
	r.views = views
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Platform) Get(c *yarf.Context) error {
	if c.Param("train") == "" {
		return badRequest("Missing train number", "")
	}
	info := r.views.Platform(c.Param("train"))
	RenderData(c, apiPlatform{
		TrainNumber: info.TrainNumber,
		Platform:    info.Platform,
		Known:       info.Known,
	})
	return nil
}
