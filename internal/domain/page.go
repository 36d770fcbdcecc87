package domain

// Page is one cursor page as returned by the remote query endpoints.
// HasMore and Total are nil when the server did not send them.
type Page[T any] struct {
	Items      []T
	NextCursor Cursor
	HasMore    *bool
	Total      *int64
}

// FindingsQuery holds the server-side filter strings. Empty fields are
// omitted from the request.
type FindingsQuery struct {
	Q             string `json:"q,omitempty"`
	StatusInclude string `json:"statusInclude,omitempty"`
	StatusExclude string `json:"statusExclude,omitempty"`
	LengthInclude string `json:"lengthInclude,omitempty"`
	LengthExclude string `json:"lengthExclude,omitempty"`
}

func (q FindingsQuery) IsZero() bool { return q == FindingsQuery{} }

type ScanAction string

const (
	ActionPause  ScanAction = "pause"
	ActionResume ScanAction = "resume"
	ActionStop   ScanAction = "stop"
	ActionDelete ScanAction = "delete"
)

func (a ScanAction) Valid() bool {
	switch a {
	case ActionPause, ActionResume, ActionStop, ActionDelete:
		return true
	}
	return false
}
