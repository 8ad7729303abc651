package domain

// FetchStatus enumerates the values written to fetch_log.status.
type FetchStatus string

// Fetch log statuses. "list" rows carry structured counters in the error
// column (key=value pairs); "seed" rows record seeding activity.
const (
	StatusOK          FetchStatus = "ok"
	StatusNotModified FetchStatus = "304"
	StatusSkip        FetchStatus = "skip"
	StatusNG          FetchStatus = "ng"
	StatusList        FetchStatus = "list"
	StatusSeed        FetchStatus = "seed"
)

// String returns the raw status tag.
func (s FetchStatus) String() string { return string(s) }
