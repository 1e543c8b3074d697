package celeryq

import "time"

// TaskOptions are the per-call invocation options accepted by
// TaskBuilder.Apply.
type TaskOptions struct {
	Args   []any
	Kwargs map[string]any

	// ETA, if set, is stamped as headers.eta. Expires is stamped as
	// headers.expires. Both are rendered as ISO-8601 strings, or null if nil.
	ETA     *time.Time
	Expires *time.Time

	// Priority is a 0-255 AMQP message priority.
	Priority uint8

	// Compression is "identity" (default), "zlib", or "gzip".
	Compression string
	// Serializer is "json" (default) or "yaml".
	Serializer string

	// IgnoreResult, if true, routes this task's ResultHandle to a no-op
	// backend instead of the builder's configured one.
	IgnoreResult bool

	// Queue overrides the builder's default queue for this call only.
	Queue string
}

func (o TaskOptions) withDefaults() TaskOptions {
	if o.Args == nil {
		o.Args = []any{}
	}
	if o.Kwargs == nil {
		o.Kwargs = map[string]any{}
	}
	if o.Serializer == "" {
		o.Serializer = "json"
	}
	if o.Compression == "" {
		o.Compression = "identity"
	}
	return o
}
