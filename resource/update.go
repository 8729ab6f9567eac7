package resource

import (
	"net/http"

	"github.com/underlx/delaywatch/compute"
	"github.com/yarf-framework/yarf"
)

// Update composites resource
type Update struct {
	resource
}

// WithIngester associates an Ingester with this resource
func (r *Update) WithIngester(ingester *compute.Ingester) *Update {
	r.ingester = ingester
	return r
}

// Post serves HTTP POST requests on this resource, running one ingestion batch
func (r *Update) Post(c *yarf.Context) error {
	result := r.ingester.RunBatch()
	status := http.StatusOK
	if !result.OK {
		status = http.StatusInternalServerError
	}
	RenderDataWithStatus(c, status, newAPIResult(result))
	return nil
}
