package pagination

import (
	"strconv"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultOffset = 0
)

// Params holds parsed limit/offset query parameters
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads limit and offset from the query string, clamping
// out-of-range values to the defaults
func ParseParams(c *gin.Context) Params {
	p := Params{Limit: DefaultLimit, Offset: DefaultOffset}

	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
		if p.Limit > MaxLimit {
			p.Limit = MaxLimit
		}
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		p.Offset = v
	}
	return p
}

// BuildMeta builds response pagination metadata
func BuildMeta(limit, offset int, total int64) *common.Meta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &common.Meta{
		Limit:      limit,
		Offset:     offset,
		Total:      total,
		TotalPages: pages,
		HasMore:    int64(offset+limit) < total,
	}
}
