package request

// CreateSnapshotRequest is the payload for capturing a portfolio snapshot.
// Kind defaults to "manual" when omitted.
type CreateSnapshotRequest struct {
	Kind string `json:"kind,omitempty"`
}
