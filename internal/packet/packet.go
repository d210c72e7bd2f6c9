// Package packet defines the wire shape of inbound request packets and
// outbound reply packets exchanged over the broker's queues.
package packet

import "strings"

// Operation is one of the terminal reply shapes a style entry can select.
type Operation string

const (
	OpCopy    Operation = "copy"
	OpSuccess Operation = "success"
	OpFailure Operation = "failure"
	OpRetry   Operation = "retry"
)

// ValidOperations lists the operations a style entry may name.
var ValidOperations = map[Operation]bool{
	OpCopy:    true,
	OpSuccess: true,
	OpFailure: true,
	OpRetry:   true,
}

// StyleEntry is the effective (or client-supplied) per-status decision.
type StyleEntry struct {
	Operation     Operation `json:"operation"`
	LogLevel      string    `json:"log_level,omitempty"`
	IgnoreVersion *bool     `json:"ignore_version,omitempty"`
}

// StyleTable maps a status key ("200", "4xx", …) to a style entry.
type StyleTable map[string]StyleEntry

// Packet is the parsed, not-yet-validated shape of an inbound message body.
// Fields are left as interface{} where the validator must first confirm
// their dynamic type; validate.Validate produces the validated Typed view.
type Packet struct {
	ResponseQueue     interface{} `json:"response_queue"`
	VersionUTCSeconds interface{} `json:"version_utc_seconds"`
	Type              interface{} `json:"type"`
	UUID              interface{} `json:"uuid"`
	SentAt            interface{} `json:"sent_at"`
	Args              interface{} `json:"args"`
	Style             interface{} `json:"style"`
	IgnoreVersion     interface{} `json:"ignore_version"`
}

// Typed is the shape of a packet after it has passed structural validation:
// every field carries its declared Go type.
type Typed struct {
	ResponseQueue     string
	VersionUTCSeconds float64
	Type              string
	UUID              string
	SentAt            float64
	Args              map[string]interface{}
	Style             StyleTable
	IgnoreVersion     bool
}

// IsVoid reports whether replies for this response queue are suppressed.
func (t *Typed) IsVoid() bool {
	return strings.HasPrefix(t.ResponseQueue, "void")
}

// Status is a handler's result status: either a numeric HTTP status or one
// of the sentinels "success"/"failure" that bypass style-table lookup.
type Status struct {
	Code     int
	Sentinel string // "" unless this is a sentinel status
}

// IsSentinel reports whether this status bypasses table-based resolution.
func (s Status) IsSentinel() bool { return s.Sentinel != "" }

// HTTPStatus builds a numeric handler status.
func HTTPStatus(code int) Status { return Status{Code: code} }

// SuccessStatus is the fixed sentinel for verbs with no data payload.
func SuccessStatus() Status { return Status{Sentinel: "success"} }

// FailureStatus is the fixed sentinel for verbs that failed with no status.
func FailureStatus() Status { return Status{Sentinel: "failure"} }

// Reply is the outbound envelope published to a response queue.
type Reply struct {
	UUID   string      `json:"uuid"`
	Type   string      `json:"type"`
	Status int         `json:"status,omitempty"`
	Info   interface{} `json:"info,omitempty"`
}

// CopyReply builds the reply for operation=copy.
func CopyReply(uuid string, status int, info interface{}) Reply {
	return Reply{UUID: uuid, Type: "copy", Status: status, Info: info}
}

// SuccessReply builds the fixed reply for operation=success.
func SuccessReply(uuid string) Reply {
	return Reply{UUID: uuid, Type: "success"}
}

// FailureReply builds the fixed reply for operation=failure.
func FailureReply(uuid string) Reply {
	return Reply{UUID: uuid, Type: "failure"}
}
