package core

import "github.com/google/uuid"

// newID mints a random identifier for sheets, events, interventions and
// log entries. google/uuid is a direct dependency of other repositories in
// the retrieval pack (paulwilltell-OFFGRIDFLOW, the rag-platform example)
// and an indirect dependency of the teacher itself; the teacher leaves
// identifier generation to its callers, so this is new code grounded on
// that shared ecosystem choice rather than on a specific teacher file.
func newID() string { return uuid.NewString() }
