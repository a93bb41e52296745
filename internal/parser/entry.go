package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Queue entries are comma-delimited UTF-8 text with exactly five
// fields: referenceId, tokenUri, version, timestamp, force.
const entryFieldCount = 5

// Timestamp layouts accepted from upstream, in precedence order.
const (
	entryTimeLayout         = "2006-01-02 15:04:05 MST"
	entryTimeLayoutFraction = "2006-01-02 15:04:05.999999 MST"
)

// DecodeEntry parses one inbound queue payload into a WorkItem.
// A malformed entry is a contract violation with the upstream
// producer, so decoding errors are fatal to the ingestion loop rather
// than recoverable per-message conditions.
func DecodeEntry(data []byte) (WorkItem, error) {
	parts := strings.Split(string(data), ",")
	if len(parts) != entryFieldCount {
		return WorkItem{}, fmt.Errorf("entry has %d fields, want %d", len(parts), entryFieldCount)
	}

	version, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return WorkItem{}, fmt.Errorf("parse version %q: %w", parts[2], err)
	}

	ts, err := time.Parse(entryTimeLayout, parts[3])
	if err != nil {
		ts, err = time.Parse(entryTimeLayoutFraction, parts[3])
		if err != nil {
			return WorkItem{}, fmt.Errorf("parse timestamp %q: %w", parts[3], err)
		}
	}

	return WorkItem{
		ReferenceID: parts[0],
		TokenURI:    parts[1],
		Version:     version,
		Timestamp:   ts,
		// Anything other than the literal "true" means no force.
		Force: parts[4] == "true",
	}, nil
}
