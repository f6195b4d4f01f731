package logging

import (
	"log/slog"
	"time"
)

// Standardized structured logging keys.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRequestID carries the opaque scan-request handle.
	FieldRequestID = "request_id"
	// FieldStage names the pipeline stage a record belongs to.
	FieldStage = "stage"
	// FieldCollection names the collection a mutation targets.
	FieldCollection = "collection"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}
