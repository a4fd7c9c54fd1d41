package fetcher

import (
	"strings"
	"testing"
)

func TestParseM3U_Attributes(t *testing.T) {
	input := "#EXTINF:-1 tvg-logo=\"L\" group-title=\"G\" tvg-id=\"I\",Name\nhttp://x"
	channels := ParseM3U(strings.NewReader(input))
	if len(channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(channels))
	}
	ch := channels[0]
	if ch.Name != "Name" || ch.URL != "http://x" {
		t.Errorf("Expected Name/http://x, got %q/%q", ch.Name, ch.URL)
	}
	if ch.Logo == nil || *ch.Logo != "L" {
		t.Errorf("Expected logo 'L', got %v", ch.Logo)
	}
	if ch.Group == nil || *ch.Group != "G" {
		t.Errorf("Expected group 'G', got %v", ch.Group)
	}
	if ch.ScheduleID == nil || *ch.ScheduleID != "I" {
		t.Errorf("Expected schedule id 'I', got %v", ch.ScheduleID)
	}
}

func TestParseM3U_DocumentOrder(t *testing.T) {
	input := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:-1,One",
		"http://one",
		"",
		"#EXTINF:-1 tvg-id=\"two.ie\",Two",
		"#EXTVLCOPT:http-user-agent=VLC",
		"http://two",
		"#EXTINF:-1,Three",
		"http://three",
	}, "\r\n")

	channels := ParseM3U(strings.NewReader(input))
	want := []string{"One", "Two", "Three"}
	if len(channels) != len(want) {
		t.Fatalf("Expected %d channels, got %d", len(want), len(channels))
	}
	for i, name := range want {
		if channels[i].Name != name {
			t.Errorf("channel %d: expected %q, got %q", i, name, channels[i].Name)
		}
	}
	if channels[1].URL != "http://two" {
		t.Errorf("Expected comment line to be skipped, got URL %q", channels[1].URL)
	}
}

func TestParseM3U_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantName  string
	}{
		{name: "empty", input: "", wantCount: 0},
		{name: "only header", input: "#EXTM3U\n", wantCount: 0},
		{name: "url without metadata", input: "http://orphan\n", wantCount: 0},
		{name: "metadata at eof", input: "#EXTINF:-1,Lost", wantCount: 0},
		{name: "metadata replaced", input: "#EXTINF:-1,First\n#EXTINF:-1,Second\nhttp://s", wantCount: 1, wantName: "Second"},
		{name: "empty name falls back to url", input: "#EXTINF:-1,\nhttp://u", wantCount: 1, wantName: "http://u"},
		{name: "no comma", input: "#EXTINF:-1 tvg-id=\"x\"\nhttp://u", wantCount: 1, wantName: "http://u"},
		{name: "bare CR", input: "#EXTINF:-1,Mac\rhttp://mac\r", wantCount: 1, wantName: "Mac"},
		{name: "lowercase marker", input: "#extinf:-1,Low\nhttp://low", wantCount: 1, wantName: "Low"},
		{name: "broken attributes", input: "#EXTINF:-1 tvg-logo=\"unterminated group-title=,Name\nhttp://u", wantCount: 1, wantName: "Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channels := ParseM3U(strings.NewReader(tt.input))
			if len(channels) != tt.wantCount {
				t.Fatalf("Expected %d channels, got %d", tt.wantCount, len(channels))
			}
			if tt.wantCount > 0 && channels[0].Name != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, channels[0].Name)
			}
		})
	}
}

func TestParseM3U_UnknownAttributesIgnored(t *testing.T) {
	input := "#EXTINF:-1 tvg-name=\"Ignored\" tvg-chno=\"7\" group-title=\"News\",Seven\nhttp://7"
	channels := ParseM3U(strings.NewReader(input))
	if len(channels) != 1 {
		t.Fatalf("Expected 1 channel, got %d", len(channels))
	}
	if channels[0].Logo != nil || channels[0].ScheduleID != nil {
		t.Errorf("Expected only group to be set, got %+v", channels[0])
	}
	if channels[0].GroupName() != "News" {
		t.Errorf("Expected group 'News', got %q", channels[0].GroupName())
	}
}

func TestParseM3U_ArbitraryBytes(t *testing.T) {
	inputs := []string{
		"\x00\x01\x02#EXTINF\xff\xfe,",
		"#EXTINF" + strings.Repeat("a", 2<<20) + "\nhttp://long",
		strings.Repeat("\n", 1000),
		"#EXTINF:-1 =\"\"=\"\",\n\x00",
	}
	for _, in := range inputs {
		// Must not panic.
		_ = ParseM3U(strings.NewReader(in))
	}
	long := ParseM3U(strings.NewReader(inputs[1]))
	if len(long) != 1 {
		t.Errorf("Expected very long EXTINF line to parse, got %d channels", len(long))
	}
}
