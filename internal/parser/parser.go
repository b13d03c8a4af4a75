// Package parser converts raw OpenCanary log lines into structured events.
//
// The accepted grammar is one JSON object per line with the fields emitted
// by the OpenCanary logger: "utc_time" / "local_time" timestamps in
// "2006-01-02 15:04:05.999999" layout, an integer "logtype" code,
// "src_host", "dst_port", and a "logdata" object carrying credentials for
// login-attempt records. Anything that deviates is a *ParseError, never a
// fatal condition.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/honeysting/honeysting/internal/logreader"
	"github.com/honeysting/honeysting/internal/models"
)

const timeLayout = "2006-01-02 15:04:05.999999"

// ErrIgnoredRecord marks a well-formed record that is not an attack event
// (OpenCanary internal records such as boot and config messages, which carry
// no destination port). These are consumed but not stored.
var ErrIgnoredRecord = errors.New("record ignored")

// ParseError describes a single unusable log line. The byte range it covers
// is still consumed; a bad line is counted and skipped, never retried.
type ParseError struct {
	Offset int64
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse line at offset %d: %s", e.Offset, e.Reason)
}

// logtype codes from the OpenCanary logger, mapped onto the event
// categories the store understands.
var logtypeCategories = map[int]models.EventType{
	4000: models.EventTypeConnection, // SSH new connection
	4001: models.EventTypeConnection, // SSH remote version sent
	5001: models.EventTypeConnection, // port SYN

	2000:  models.EventTypeLoginAttempt, // FTP
	3001:  models.EventTypeLoginAttempt, // HTTP POST
	4002:  models.EventTypeLoginAttempt, // SSH
	6001:  models.EventTypeLoginAttempt, // Telnet
	7001:  models.EventTypeLoginAttempt, // HTTP proxy
	8001:  models.EventTypeLoginAttempt, // MySQL
	9001:  models.EventTypeLoginAttempt, // MSSQL (SQL auth)
	9002:  models.EventTypeLoginAttempt, // MSSQL (Windows auth)
	12001: models.EventTypeLoginAttempt, // VNC

	5002:  models.EventTypeUnusualActivity, // nmap OS scan
	5003:  models.EventTypeUnusualActivity, // nmap FIN scan
	5005:  models.EventTypeUnusualActivity, // nmap NULL scan
	5006:  models.EventTypeUnusualActivity, // nmap XMAS scan
	5000:  models.EventTypeUnusualActivity, // SMB file open
	11001: models.EventTypeUnusualActivity, // NTP monlist
}

type canaryRecord struct {
	UTCTime   string                     `json:"utc_time"`
	LocalTime string                     `json:"local_time"`
	Logtype   *int                       `json:"logtype"`
	SrcHost   string                     `json:"src_host"`
	DstPort   *int                       `json:"dst_port"`
	Logdata   map[string]json.RawMessage `json:"logdata"`
	Username  string                     `json:"username"`
	User      string                     `json:"user"`
	Password  string                     `json:"password"`
}

// Parser is a pure line → event function. It holds only the location used
// to normalize local_time stamps to UTC.
type Parser struct {
	sourceLoc *time.Location
}

// New creates a Parser that interprets local_time stamps in loc.
func New(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{sourceLoc: loc}
}

// Parse converts one raw line into an Event. It returns *ParseError for
// malformed lines and ErrIgnoredRecord for well-formed non-attack records;
// both are consumed-and-skipped conditions for the caller.
func (p *Parser) Parse(line logreader.Line) (*models.Event, error) {
	text := strings.TrimSpace(line.Text)
	if text == "" || !strings.HasPrefix(text, "{") {
		return nil, &ParseError{Offset: line.Offset, Reason: "not a JSON object", Line: line.Text}
	}

	var rec canaryRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, &ParseError{Offset: line.Offset, Reason: fmt.Sprintf("invalid JSON: %v", err), Line: line.Text}
	}

	// OpenCanary internal records (boot, config, errors) carry no port.
	if rec.DstPort == nil || *rec.DstPort < 0 {
		return nil, ErrIgnoredRecord
	}
	if rec.Logtype == nil {
		return nil, &ParseError{Offset: line.Offset, Reason: "missing logtype", Line: line.Text}
	}
	eventType, ok := logtypeCategories[*rec.Logtype]
	if !ok {
		return nil, &ParseError{Offset: line.Offset, Reason: fmt.Sprintf("unknown logtype %d", *rec.Logtype), Line: line.Text}
	}

	ts, err := p.parseTime(rec)
	if err != nil {
		return nil, &ParseError{Offset: line.Offset, Reason: err.Error(), Line: line.Text}
	}

	username, password := extractCredentials(rec)

	return &models.Event{
		SourceOffset: line.Offset,
		Timestamp:    ts,
		Type:         eventType,
		SrcIP:        rec.SrcHost,
		DstPort:      *rec.DstPort,
		Username:     username,
		Password:     password,
		RawPayload:   line.Text,
	}, nil
}

// parseTime prefers the UTC stamp and falls back to local_time interpreted
// in the configured source location. Either way the result is UTC.
func (p *Parser) parseTime(rec canaryRecord) (time.Time, error) {
	if rec.UTCTime != "" {
		ts, err := time.ParseInLocation(timeLayout, rec.UTCTime, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparsable utc_time %q", rec.UTCTime)
		}
		return ts, nil
	}
	if rec.LocalTime != "" {
		ts, err := time.ParseInLocation(timeLayout, rec.LocalTime, p.sourceLoc)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparsable local_time %q", rec.LocalTime)
		}
		return ts.UTC(), nil
	}
	return time.Time{}, errors.New("missing timestamp")
}

// extractCredentials pulls username/password from the nested logdata object,
// falling back to top-level fields. A field that is present maps to its
// value even when empty; a field that is absent maps to nil.
func extractCredentials(rec canaryRecord) (username, password *string) {
	for key, raw := range rec.Logdata {
		var val string
		if err := json.Unmarshal(raw, &val); err != nil {
			continue
		}
		switch lower := strings.ToLower(key); {
		case lower == "username" || lower == "user":
			if username == nil {
				username = &val
			}
		case strings.Contains(lower, "password"):
			if password == nil {
				password = &val
			}
		}
	}

	if username == nil && (rec.Username != "" || rec.User != "") {
		val := rec.Username
		if val == "" {
			val = rec.User
		}
		username = &val
	}
	if password == nil && rec.Password != "" {
		val := rec.Password
		password = &val
	}
	return username, password
}
