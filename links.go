package lidarinv

import (
	"encoding/json"
	"regexp"
)

// LinkRecord is one typed link from a collection's metadata blob.
type LinkRecord struct {
	Label  string `json:"label"`
	Type   string `json:"linktype"`
	Target string `json:"link"`
}

type linkList struct {
	Links []LinkRecord `json:"links"`
}

const (
	linkTypeEPT        = "EPT Link"
	linkTypeDataAccess = "Data Access"
	labelDigitalCoast  = "NOAA Digital Coast"
)

var noaaIDPattern = regexp.MustCompile(`ID=(\d+)`)

// ParseLinks decodes a Links metadata blob into typed records. Malformed or
// absent input yields no records, never an error; missing link data
// propagates downstream as an unresolved endpoint.
func ParseLinks(raw string) []LinkRecord {
	if raw == "" {
		return nil
	}
	var list linkList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list.Links
}

// eptLink returns the first link marking a streamable EPT resource.
func eptLink(records []LinkRecord) (string, bool) {
	for _, rec := range records {
		if rec.Type == linkTypeEPT {
			return rec.Target, true
		}
	}
	return "", false
}

// noaaLidarID extracts the numeric dataset identifier embedded in the
// Digital Coast data-access link.
func noaaLidarID(records []LinkRecord) (string, bool) {
	for _, rec := range records {
		if rec.Label != labelDigitalCoast || rec.Type != linkTypeDataAccess {
			continue
		}
		if m := noaaIDPattern.FindStringSubmatch(rec.Target); m != nil {
			return m[1], true
		}
		return "", false
	}
	return "", false
}
