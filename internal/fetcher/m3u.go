package fetcher

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/voyagen/goodytv/internal/models"
)

const extinfMarker = "#EXTINF"

// reAttr matches key="value" pairs in an EXTINF attribute block.
var reAttr = regexp.MustCompile(`([a-zA-Z0-9-]+)="(.*?)"`)

// extinf is the metadata carried by an #EXTINF line until its URL line arrives.
type extinf struct {
	name       string
	logo       string
	group      string
	scheduleID string
}

// ParseM3U reads an extended M3U playlist from r and returns its channels in
// document order. It never fails: malformed lines are skipped, unknown
// attributes ignored, and a read error ends the scan with what was parsed so far.
func ParseM3U(r io.Reader) []models.Channel {
	var (
		channels []models.Channel
		pending  *extinf
	)
	br := bufio.NewReader(r)
	for {
		chunk, err := br.ReadString('\n')
		// Old Mac-style playlists terminate lines with a bare CR.
		for _, raw := range strings.Split(chunk, "\r") {
			line := strings.TrimSpace(raw)
			switch {
			case line == "":
			case len(line) >= len(extinfMarker) && strings.EqualFold(line[:len(extinfMarker)], extinfMarker):
				// A previous EXTINF without a URL is dropped.
				pending = parseEXTINF(line)
			case strings.HasPrefix(line, "#"):
				// #EXTM3U, #EXTVLCOPT, #EXTGRP and plain comments.
			case pending != nil:
				channels = append(channels, pending.channel(line))
				pending = nil
			}
		}
		if err != nil {
			break
		}
	}
	return channels
}

// parseEXTINF splits `#EXTINF:-1 k="v" ...,Display Name` into its
// attribute block and display name.
func parseEXTINF(line string) *extinf {
	rest := strings.TrimPrefix(line[len(extinfMarker):], ":")
	attrs, name := rest, ""
	if i := strings.Index(rest, ","); i >= 0 {
		attrs, name = rest[:i], strings.TrimSpace(rest[i+1:])
	}
	meta := &extinf{name: name}
	for _, m := range reAttr.FindAllStringSubmatch(attrs, -1) {
		switch strings.ToLower(m[1]) {
		case "tvg-logo":
			meta.logo = m[2]
		case "group-title":
			meta.group = m[2]
		case "tvg-id":
			meta.scheduleID = m[2]
		}
	}
	return meta
}

func (e *extinf) channel(url string) models.Channel {
	name := e.name
	if name == "" {
		name = url
	}
	return models.Channel{
		Name:       name,
		URL:        url,
		Logo:       optional(e.logo),
		Group:      optional(e.group),
		ScheduleID: optional(e.scheduleID),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
