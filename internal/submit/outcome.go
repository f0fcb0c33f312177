package submit

// Outcome classifies exactly what happened to one submission attempt.
// Expected failures are values here, never raised errors, so callers can
// branch on them without unwrapping.
type Outcome string

const (
	// OutcomeSuccess means the server persisted the check-in, or
	// recognized it as a duplicate of one it already holds.
	OutcomeSuccess Outcome = "success"
	// OutcomeOffline means the request never left the device: the
	// reachability signal reported offline, or dialing failed while it
	// did.
	OutcomeOffline Outcome = "offline"
	// OutcomeAuthRequired means the server rejected the session (401).
	OutcomeAuthRequired Outcome = "auth_required"
	// OutcomeServerRejected means the server refused the payload itself
	// (validation, conflict); retrying the same payload is pointless.
	OutcomeServerRejected Outcome = "server_rejected"
	// OutcomeTransient covers network-layer trouble other than confirmed
	// offline: timeouts, resets, server-side 5xx.
	OutcomeTransient Outcome = "transient"
)

// Result carries the classified outcome of one attempt along with
// diagnostics. Status is the HTTP status when a response was received,
// zero otherwise; Err holds the underlying cause for non-HTTP failures.
type Result struct {
	Outcome Outcome
	Status  int
	Err     error
}
