package fetcher

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/voyagen/goodytv/internal/models"
)

// ParseXMLTV streams an XMLTV document from r and groups its programmes by
// channel id. Programmes within a channel keep document order.
//
// A document-level failure returns an empty schedule together with an error
// wrapping models.ErrParseDegraded; partial results are never returned.
// Programmes whose start or stop cannot be parsed are skipped.
func ParseXMLTV(r io.Reader) (models.Schedule, error) {
	dec := xml.NewDecoder(r)
	// Guides in the wild carry bare ampersands ("Tom & Jerry").
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	sched := models.Schedule{}
	var (
		cur        models.Programme
		inProg     bool
		timesOK    bool
		inTitle    bool
		titleDone  bool
		titleChars strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Schedule{}, fmt.Errorf("%w: xmltv: %v", models.ErrParseDegraded, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "programme":
				inProg, inTitle, titleDone = true, false, false
				titleChars.Reset()
				cur = models.Programme{ChannelID: attr(el, "channel")}
				start, errStart := ParseXMLTVTime(attr(el, "start"))
				stop, errStop := ParseXMLTVTime(attr(el, "stop"))
				cur.Start, cur.Stop = start, stop
				timesOK = errStart == nil && errStop == nil
			case "title":
				if inProg && !titleDone {
					inTitle = true
				}
			}

		case xml.CharData:
			if inTitle {
				titleChars.Write(el)
			}

		case xml.EndElement:
			switch el.Name.Local {
			case "title":
				if inTitle {
					inTitle = false
					// An empty title leaves the next one eligible.
					if t := strings.TrimSpace(titleChars.String()); t != "" {
						cur.Title, titleDone = t, true
					}
					titleChars.Reset()
				}
			case "programme":
				if inProg && timesOK {
					sched[cur.ChannelID] = append(sched[cur.ChannelID], cur)
				}
				inProg = false
			}
		}
	}
	return sched, nil
}

// ParseXMLTVTime parses an XMLTV timestamp ("20260223140000 +0000") into UTC.
// Accepted zone forms: "+HHMM", "+HH:MM", "+HH", "Z", or none (UTC), with or
// without a separating space. Seconds may be omitted.
func ParseXMLTVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	var layout string
	switch n {
	case 14:
		layout = "20060102150405"
	case 12:
		layout = "200601021504"
	default:
		return time.Time{}, fmt.Errorf("parse xmltv time %q: bad length", s)
	}
	base, err := time.ParseInLocation(layout, s[:n], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse xmltv time %q: %w", s, err)
	}
	offset, err := parseZoneOffset(strings.TrimSpace(s[n:]))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse xmltv time %q: %w", s, err)
	}
	return base.Add(-offset).UTC(), nil
}

func parseZoneOffset(z string) (time.Duration, error) {
	if z == "" || strings.EqualFold(z, "Z") {
		return 0, nil
	}
	sign := time.Duration(1)
	switch z[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("bad zone %q", z)
	}
	digits := strings.ReplaceAll(z[1:], ":", "")
	var hh, mm int
	var err error
	switch len(digits) {
	case 4:
		if hh, err = strconv.Atoi(digits[:2]); err == nil {
			mm, err = strconv.Atoi(digits[2:])
		}
	case 2:
		hh, err = strconv.Atoi(digits)
	default:
		return 0, fmt.Errorf("bad zone %q", z)
	}
	if err != nil || hh > 14 || mm > 59 {
		return 0, fmt.Errorf("bad zone %q", z)
	}
	return sign * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// charsetReader lets guides declared as ISO-8859-1 or windows-1252 decode.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
