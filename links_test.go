package lidarinv

import "testing"

const sampleLinks = `{"links": [
	{"label": "Metadata", "linktype": "Metadata Link", "link": "https://example.com/meta.xml"},
	{"label": "NOAA Digital Coast", "linktype": "Data Access", "link": "https://coast.noaa.gov/dataviewer/#/lidar/search/?ID=6335"},
	{"label": "Entwine", "linktype": "EPT Link", "link": "https://s3.example.com/ept/6335/ept.json"},
	{"label": "Entwine mirror", "linktype": "EPT Link", "link": "https://mirror.example.com/ept/6335/ept.json"}
]}`

func TestParseLinks(t *testing.T) {
	records := ParseLinks(sampleLinks)
	if len(records) != 4 {
		t.Fatalf("expected 4 link records, got %d", len(records))
	}
	if records[1].Label != "NOAA Digital Coast" || records[1].Type != "Data Access" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestParseLinks_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", ""},
		{"NotJSON", "not json at all"},
		{"WrongShape", `{"links": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if records := ParseLinks(tt.raw); len(records) != 0 {
				t.Errorf("expected no records, got %d", len(records))
			}
		})
	}
}

func TestEPTLink(t *testing.T) {
	link, ok := eptLink(ParseLinks(sampleLinks))
	if !ok {
		t.Fatal("expected an EPT link")
	}
	// The first EPT-typed link wins.
	if link != "https://s3.example.com/ept/6335/ept.json" {
		t.Errorf("unexpected link %q", link)
	}

	if _, ok := eptLink(nil); ok {
		t.Error("expected no EPT link from empty records")
	}
}

func TestNOAALidarID(t *testing.T) {
	id, ok := noaaLidarID(ParseLinks(sampleLinks))
	if !ok || id != "6335" {
		t.Errorf("expected id 6335, got %q (ok=%v)", id, ok)
	}

	tests := []struct {
		name    string
		records []LinkRecord
	}{
		{"NoRecords", nil},
		{"WrongLabel", []LinkRecord{{Label: "Other", Type: "Data Access", Target: "https://x/?ID=1"}}},
		{"WrongType", []LinkRecord{{Label: "NOAA Digital Coast", Type: "Metadata Link", Target: "https://x/?ID=1"}}},
		{"NoIDInTarget", []LinkRecord{{Label: "NOAA Digital Coast", Type: "Data Access", Target: "https://x/nothing"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := noaaLidarID(tt.records); ok {
				t.Error("expected no identifier")
			}
		})
	}
}
