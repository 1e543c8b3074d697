package celeryq

import (
	"os"
	"strconv"
	"time"

	"github.com/celeryq/celeryq/envelope"
	"github.com/celeryq/celeryq/packer"
)

// isoOrNull renders t as an ISO-8601 string, or nil if t is nil.
func isoOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// origin renders "<pid>@<hostname>", falling back to an empty hostname if it
// cannot be determined.
func origin() string {
	host, _ := os.Hostname()
	return strconv.Itoa(os.Getpid()) + "@" + host
}

// timeLimitOrNull renders a seconds value as a header-ready int, or nil if
// the limit is unset (zero).
func timeLimitOrNull(seconds uint32) any {
	if seconds == 0 {
		return nil
	}
	return seconds
}

// buildEnvelope assembles the Celery protocol-2 envelope for a single task
// invocation, implementing the headers/properties/body invariants.
func buildEnvelope(taskID, taskName, queue string, mode DeliveryMode, appID string, softLimit, hardLimit uint32, opts TaskOptions, pk packer.Packer) (envelope.Envelope, error) {
	body, err := pk.Pack([3]any{
		opts.Args,
		opts.Kwargs,
		map[string]any{"callbacks": nil, "chain": nil, "chord": nil, "errbacks": nil},
	})
	if err != nil {
		return envelope.Envelope{}, err
	}

	headers := map[string]any{
		"id":        taskID,
		"task":      taskName,
		"root_id":   taskID,
		"parent_id": nil,
		"lang":      "py",
		"timelimit": []any{timeLimitOrNull(softLimit), timeLimitOrNull(hardLimit)},
		"eta":       isoOrNull(opts.ETA),
		"expires":   isoOrNull(opts.Expires),
		"origin":    origin(),
	}
	if label, present := pk.CompressionLabel(); present {
		headers["compression"] = label
	}

	properties := map[string]any{
		"correlation_id": taskID,
		"reply_to":       appID,
		"delivery_mode":  int(mode),
		"delivery_info": map[string]any{
			"exchange":    "",
			"routing_key": queue,
		},
		"priority":         int(opts.Priority),
		"body_encoding":    pk.Encoder.Name(),
		"content_type":     pk.Serializer.ContentType(),
		"content_encoding": "utf-8",
	}

	return envelope.Envelope{Headers: headers, Properties: properties, Body: body}, nil
}
