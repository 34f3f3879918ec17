package domain

// Caller is a registered consumer of the analysis API. The affiliation
// decides which downstream destination receives the merged result for
// requests this caller initiates.
type Caller struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
}
