package metrics

// Instrument names shared by broker, backend, and the task envelope builder.
// Centralized here so every Provider implementation records under the same
// keys regardless of which component touched it.
const (
	PublishTotal         = "celeryq_publish_total"
	PublishFailuresTotal = "celeryq_publish_failures_total"
	PublishLatencySecs   = "celeryq_publish_latency_seconds"
	InflightTasks        = "celeryq_inflight_tasks"
	PendingResults       = "celeryq_pending_results"
	ResultLatencySecs    = "celeryq_result_latency_seconds"
	PoolOwned            = "celeryq_pool_owned_resources"
)
