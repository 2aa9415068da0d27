package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// SessionID records the wizard session identifier under the key "session_id".
// Empty ids produce an empty Attr.
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// ProjectID records the project identifier under the key "project_id".
func ProjectID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("project_id", id)
}

// Plan records the plan name under the key "plan".
func Plan(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("plan", name)
}

// BillingCycle records the billing cycle under the key "billing_cycle".
func BillingCycle(cycle any) slog.Attr {
	if cycle == nil {
		return slog.Attr{}
	}
	return slog.Any("billing_cycle", cycle)
}

// Step records the wizard step under the key "step".
func Step(step any) slog.Attr {
	if step == nil {
		return slog.Attr{}
	}
	return slog.Any("step", step)
}

// Verdict records a transition verdict under the key "verdict".
func Verdict(v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any("verdict", v)
}

// Status records an HTTP status code under the key "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
