// Package validate implements structural validation of inbound packets,
// rejecting anything malformed before a handler is ever consulted.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/riverglen/reddit-broker/internal/logger"
	"github.com/riverglen/reddit-broker/internal/packet"
)

var validLogLevels = map[string]bool{
	"NONE": true, "TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
}

var validClassKeys = map[string]bool{"2xx": true, "3xx": true, "4xx": true, "5xx": true}

// Error describes which structural rule a packet failed.
type Error struct {
	Rule   string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func fail(ctx context.Context, rule, detail string, raw []byte) error {
	err := &Error{Rule: rule, Detail: detail}
	logger.WarnContext(ctx, "packet validation failed",
		"rule", rule,
		"detail", detail,
		"body", truncate(raw, 256),
	)
	return err
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}

// Validate runs the ordered structural rules against a raw message body and,
// on success, returns the packet with every field coerced to its declared type.
func Validate(ctx context.Context, raw []byte) (*packet.Typed, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fail(ctx, "body_must_be_object", err.Error(), raw)
	}

	rq, ok := body["response_queue"].(string)
	if !ok {
		return nil, fail(ctx, "response_queue_must_be_string", fmt.Sprintf("got %T", body["response_queue"]), raw)
	}

	version, ok := asNumber(body["version_utc_seconds"])
	if !ok {
		return nil, fail(ctx, "version_utc_seconds_must_be_numeric", fmt.Sprintf("got %T", body["version_utc_seconds"]), raw)
	}

	typ, ok := body["type"].(string)
	if !ok {
		return nil, fail(ctx, "type_must_be_string", fmt.Sprintf("got %T", body["type"]), raw)
	}
	uuid, ok := body["uuid"].(string)
	if !ok {
		return nil, fail(ctx, "uuid_must_be_string", fmt.Sprintf("got %T", body["uuid"]), raw)
	}
	sentAt, ok := asNumber(body["sent_at"])
	if !ok {
		return nil, fail(ctx, "sent_at_must_be_numeric", fmt.Sprintf("got %T", body["sent_at"]), raw)
	}

	var rawStyle map[string]interface{}
	if v, present := body["style"]; present && v != nil {
		rawStyle, ok = v.(map[string]interface{})
		if !ok {
			return nil, fail(ctx, "style_must_be_object", fmt.Sprintf("got %T", v), raw)
		}
	}

	var ignoreVersion bool
	if v, present := body["ignore_version"]; present && v != nil {
		ignoreVersion, ok = v.(bool)
		if !ok {
			return nil, fail(ctx, "ignore_version_must_be_boolean", fmt.Sprintf("got %T", v), raw)
		}
	}

	style := make(packet.StyleTable, len(rawStyle))
	for key, entryVal := range rawStyle {
		if !isValidStyleKey(key) {
			return nil, fail(ctx, "style_key_invalid", key, raw)
		}
		entryObj, ok := entryVal.(map[string]interface{})
		if !ok {
			return nil, fail(ctx, "style_value_must_be_object", fmt.Sprintf("key=%s got %T", key, entryVal), raw)
		}
		opStr, ok := entryObj["operation"].(string)
		if !ok {
			return nil, fail(ctx, "style_operation_must_be_string", key, raw)
		}
		op := packet.Operation(opStr)
		if !packet.ValidOperations[op] {
			return nil, fail(ctx, "style_operation_unrecognized", opStr, raw)
		}
		entry := packet.StyleEntry{Operation: op}
		if lvl, present := entryObj["log_level"]; present && lvl != nil {
			lvlStr, ok := lvl.(string)
			if !ok || !validLogLevels[strings.ToUpper(lvlStr)] {
				return nil, fail(ctx, "style_log_level_invalid", fmt.Sprintf("%v", lvl), raw)
			}
			entry.LogLevel = strings.ToUpper(lvlStr)
		}
		if op == packet.OpRetry {
			if iv, present := entryObj["ignore_version"]; present && iv != nil {
				ivBool, ok := iv.(bool)
				if !ok {
					return nil, fail(ctx, "retry_ignore_version_must_be_boolean", fmt.Sprintf("%T", iv), raw)
				}
				entry.IgnoreVersion = &ivBool
			}
		}
		style[key] = entry
	}

	var args map[string]interface{}
	if v, present := body["args"]; present && v != nil {
		args, _ = v.(map[string]interface{})
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	return &packet.Typed{
		ResponseQueue:     rq,
		VersionUTCSeconds: version,
		Type:              typ,
		UUID:              uuid,
		SentAt:            sentAt,
		Args:              args,
		Style:             style,
		IgnoreVersion:     ignoreVersion,
	}, nil
}

func isValidStyleKey(key string) bool {
	if validClassKeys[key] {
		return true
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return false
	}
	return n >= 200 && n <= 599
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
