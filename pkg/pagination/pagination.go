package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultCount = 20
	MaxCount     = 100
)

// Params holds the page window extracted from a request. Both the FHIR
// search style (_count/_offset) and the plain style (limit/offset) are
// accepted.
type Params struct {
	Count  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context,
// clamping the count to [1, MaxCount].
func FromContext(c echo.Context) Params {
	count, _ := strconv.Atoi(c.QueryParam("_count"))
	if count <= 0 {
		count, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}

	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	if offset <= 0 {
		offset, _ = strconv.Atoi(c.QueryParam("offset"))
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Count: count, Offset: offset}
}

// HasNext reports whether results exist after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Count < total
}

// HasPrevious reports whether results exist before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset of the following page.
func (p Params) NextOffset() int {
	return p.Offset + p.Count
}

// PreviousOffset returns the offset of the preceding page, floored at 0.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Count
	if prev < 0 {
		return 0
	}
	return prev
}

// Link is a relation/URL pair used in FHIR Bundle.link entries.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Links builds self/next/previous links for a search result. Filter
// parameters from the original query are preserved; the pagination
// parameters are normalized to _offset/_count.
func (p Params) Links(basePath string, query url.Values, total int) []Link {
	build := func(offset int) string {
		q := url.Values{}
		for key, vals := range query {
			switch key {
			case "_count", "_offset", "limit", "offset":
			default:
				q[key] = vals
			}
		}
		q.Set("_offset", strconv.Itoa(offset))
		q.Set("_count", strconv.Itoa(p.Count))
		return fmt.Sprintf("%s?%s", basePath, q.Encode())
	}

	links := []Link{{Relation: "self", URL: build(p.Offset)}}
	if p.HasNext(total) {
		links = append(links, Link{Relation: "next", URL: build(p.NextOffset())})
	}
	if p.HasPrevious() {
		links = append(links, Link{Relation: "previous", URL: build(p.PreviousOffset())})
	}
	return links
}

// Response wraps a paginated /api/v1 list response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Count   int         `json:"count"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Count:   p.Count,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
}
