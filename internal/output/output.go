// Package output renders a completed scan's result.Sink as text, JSON, or
// XML — a ScanResults::save_as_txt/json/xml style writer built on a
// tabwriter-based table printer plus an atomic file writer.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// Format names accepted by Write and the CLI's --output-format flag.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Write renders sink to w in the given format. An unrecognized format is
// an error — there is no silent fallback to text.
func Write(w io.Writer, sink *result.Sink, target string, elapsed time.Duration, format string) error {
	switch format {
	case "", FormatText:
		return WriteText(w, sink, target, elapsed)
	case FormatJSON:
		return WriteJSON(w, sink, target, elapsed)
	case FormatXML:
		return WriteXML(w, sink, target, elapsed)
	default:
		return fmt.Errorf("output: unsupported format %q", format)
	}
}

// WriteText prints a tabwriter-aligned table followed by a one-line
// summary of counts by status, with a SERVICE/BANNER column for the
// service-detection pipeline's output.
func WriteText(w io.Writer, sink *result.Sink, target string, elapsed time.Duration) error {
	rows := sink.SortedByPort()

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSTATE\tSERVICE\tCONFIDENCE\tBANNER\tRTT\tINFO")
	for _, r := range rows {
		service := r.Service.Name
		confidence := ""
		if r.Service.Name != "" {
			confidence = fmt.Sprintf("%.2f", r.Service.Confidence)
		}
		banner := truncate(r.Banner, 60)
		rtt := ""
		if r.ResponseTime > 0 {
			rtt = r.ResponseTime.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d/%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Port, protoName(r), r.Status, service, confidence, banner, rtt, r.Error)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("output: flush table: %w", err)
	}

	counts := sink.CountByStatus
	fmt.Fprintf(w, "\n%s: %d ports scanned in %s — open=%d closed=%d filtered=%d unknown=%d open|filtered=%d\n",
		target, sink.Len(), elapsed.Round(time.Millisecond),
		counts(result.Open), counts(result.Closed), counts(result.Filtered),
		counts(result.Unknown), counts(result.OpenFiltered))
	return nil
}

func protoName(r result.ScanResult) string {
	if r.IPVersion == scanconfig.IPv6 {
		return "tcp6"
	}
	return "tcp"
}

func truncate(s string, max int) string {
	s = singleLine(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func singleLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			out = append(out, ' ')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// document is the common shape serialized to JSON/XML, independent of
// result.Sink's internal storage.
type document struct {
	XMLName xml.Name     `json:"-" xml:"scan_result"`
	Target  string       `json:"target" xml:"target"`
	Elapsed string       `json:"elapsed" xml:"elapsed"`
	Summary summary      `json:"summary" xml:"summary"`
	Ports   []portRecord `json:"ports" xml:"ports>port"`
}

type summary struct {
	Total        int `json:"total" xml:"total"`
	Open         int `json:"open" xml:"open"`
	Closed       int `json:"closed" xml:"closed"`
	Filtered     int `json:"filtered" xml:"filtered"`
	Unknown      int `json:"unknown" xml:"unknown"`
	OpenFiltered int `json:"open_filtered" xml:"open_filtered"`
}

type portRecord struct {
	Port         uint16  `json:"port" xml:"number,attr"`
	Status       string  `json:"status" xml:"status"`
	Service      string  `json:"service,omitempty" xml:"service,omitempty"`
	Confidence   float64 `json:"confidence,omitempty" xml:"confidence,omitempty"`
	Banner       string  `json:"banner,omitempty" xml:"banner,omitempty"`
	ResponseTime string  `json:"response_time,omitempty" xml:"response_time,omitempty"`
	Error        string  `json:"error,omitempty" xml:"error,omitempty"`
}

func toDocument(sink *result.Sink, target string, elapsed time.Duration) document {
	rows := sink.SortedByPort()
	doc := document{
		Target:  target,
		Elapsed: elapsed.Round(time.Millisecond).String(),
		Summary: summary{
			Total:        sink.Len(),
			Open:         sink.CountByStatus(result.Open),
			Closed:       sink.CountByStatus(result.Closed),
			Filtered:     sink.CountByStatus(result.Filtered),
			Unknown:      sink.CountByStatus(result.Unknown),
			OpenFiltered: sink.CountByStatus(result.OpenFiltered),
		},
		Ports: make([]portRecord, 0, len(rows)),
	}
	for _, r := range rows {
		pr := portRecord{
			Port:    r.Port,
			Status:  r.Status.String(),
			Service: r.Service.Name,
			Banner:  r.Banner,
			Error:   r.Error,
		}
		if r.Service.Name != "" {
			pr.Confidence = r.Service.Confidence
		}
		if r.ResponseTime > 0 {
			pr.ResponseTime = r.ResponseTime.Round(time.Millisecond).String()
		}
		doc.Ports = append(doc.Ports, pr)
	}
	return doc
}

// WriteJSON renders sink as an indented JSON document.
func WriteJSON(w io.Writer, sink *result.Sink, target string, elapsed time.Duration) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toDocument(sink, target, elapsed))
}

// WriteXML renders sink as an indented XML document, matching a
// ScanResults::save_as_xml style element layout.
func WriteXML(w io.Writer, sink *result.Sink, target string, elapsed time.Duration) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toDocument(sink, target, elapsed)); err != nil {
		return fmt.Errorf("output: encode xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
