package fhir

import (
	"encoding/json"
	"time"
)

// Bundle is a FHIR Bundle, used here for searchset responses.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// NewSearchBundle builds a searchset Bundle from already-mapped FHIR
// resources. Each resource must carry "resourceType" and "id" keys so the
// entry fullUrl can be derived.
func NewSearchBundle(resources []map[string]interface{}, total int, baseURL string, links []BundleLink) *Bundle {
	now := time.Now().UTC()
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			continue
		}
		entries = append(entries, BundleEntry{
			FullURL:  fullURL(r, baseURL),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		})
	}

	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Link:         links,
		Entry:        entries,
		Timestamp:    &now,
	}
}

func fullURL(resource map[string]interface{}, baseURL string) string {
	rt, _ := resource["resourceType"].(string)
	id, _ := resource["id"].(string)
	if rt == "" || id == "" {
		return ""
	}
	return baseURL + "/" + rt + "/" + id
}
