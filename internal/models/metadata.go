package models

import "fmt"

// Trigger identifies the event class that caused a snapshot
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerAutoTime  Trigger = "auto-time"
	TriggerAutoGit   Trigger = "auto-git"
	TriggerAutoRisky Trigger = "auto-risky"
	TriggerAutoError Trigger = "auto-error"
)

// Triggers lists every valid trigger in display order
var Triggers = []Trigger{TriggerManual, TriggerAutoTime, TriggerAutoGit, TriggerAutoRisky, TriggerAutoError}

// ParseTrigger validates a trigger name. An empty name means manual.
func ParseTrigger(s string) (Trigger, error) {
	if s == "" {
		return TriggerManual, nil
	}
	for _, t := range Triggers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid trigger: %s (must be: manual, auto-time, auto-git, auto-risky, auto-error)", s)
}

// Encoding is how a file's bytes are represented inside a content object
type Encoding string

const (
	EncodingUTF8   Encoding = "utf8"
	EncodingBinary Encoding = "binary"
)

// Compression is the algorithm applied to a content object's payload.
// The writer records it accurately; readers decode by it.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
)
