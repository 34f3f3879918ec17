// Package merge combines the per-transcript analysis results of one
// request into a single case-level result object.
package merge

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tessellary/casework-api/internal/domain"
)

// Wire-format keys of the inference service's result payload. These are
// external contracts shared with the downstream consumers and must not
// change.
const (
	// KeyClassification is the case-classification field, merged by
	// per-person majority vote rather than by union.
	KeyClassification = "ajfl"

	// KeyPersonInfo is the list of persons an analysis result refers to.
	KeyPersonInfo = "victimPersonInfo"

	// KeyRawText is the raw transcript text, stripped from the merged
	// output.
	KeyRawText = "content"

	// KeyHeader is the identity header attached to each task's result
	// before merging.
	KeyHeader = "bilu_header"

	// nameNone is the sentinel recorded when a person has no usable name.
	nameNone = "无"
)

// Merge builds the case-level result from a request's completed task
// records.
//
// Every field of every parseable per-task result is unioned into an
// ordered slice: list values are concatenated, scalar values appended,
// and duplicates deliberately preserved so multiplicity across
// transcripts survives. The classification field is merged separately by
// per-person majority vote. A record whose payload is not a JSON object
// is skipped; it never aborts the merge. The raw transcript text is
// stripped from the output.
func Merge(records []*domain.TranscriptTask) map[string]any {
	merged := make(map[string]any)
	votes := newClassificationVotes()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal([]byte(rec.ResultPayload), &obj); err != nil || obj == nil {
			// Unparseable result: excluded from field merging.
			continue
		}
		obj[KeyHeader] = header(rec)

		for key, value := range obj {
			if key == KeyClassification {
				votes.observe(obj, value)
				continue
			}
			existing, _ := merged[key].([]any)
			if list, ok := value.([]any); ok {
				merged[key] = append(existing, list...)
			} else {
				merged[key] = append(existing, value)
			}
		}
	}

	merged[KeyClassification] = votes.tally()
	delete(merged, KeyRawText)

	return merged
}

// header builds the identity header for one task record from the
// attributes derived at dispatch time. Missing attributes stay null.
func header(rec *domain.TranscriptTask) map[string]any {
	h := map[string]any{
		"interviewee_name":       rec.IntervieweeName,
		"gender":                 nil,
		"age":                    nil,
		"birth_date":             nil,
		"id_number":              rec.IDNumber,
		"household_registration": nil,
	}
	if rec.Gender != nil {
		h["gender"] = *rec.Gender
	}
	if rec.Age != nil {
		h["age"] = *rec.Age
	}
	if rec.BirthDate != nil {
		h["birth_date"] = rec.BirthDate.Format(time.DateOnly)
	}
	if rec.Registration != nil {
		h["household_registration"] = *rec.Registration
	}
	return h
}

// classificationVotes accumulates classification observations grouped by
// person name, preserving first-seen order of both names and candidate
// values so tie-breaks are deterministic.
type classificationVotes struct {
	names    []string
	byPerson map[string]*candidateSet
}

func newClassificationVotes() *classificationVotes {
	return &classificationVotes{byPerson: make(map[string]*candidateSet)}
}

// observe records one result's classification value for every named
// person in its person-info list. Persons without a usable name are
// skipped.
func (v *classificationVotes) observe(obj map[string]any, value any) {
	persons, ok := obj[KeyPersonInfo].([]any)
	if !ok {
		return
	}
	for _, p := range persons {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		name, _ := pm["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" || name == nameNone {
			continue
		}
		set, seen := v.byPerson[name]
		if !seen {
			set = newCandidateSet()
			v.byPerson[name] = set
			v.names = append(v.names, name)
		}
		set.add(value)
	}
}

// tally selects, for each person in first-seen order, the most frequent
// distinct classification value, breaking ties by first-seen order.
func (v *classificationVotes) tally() []any {
	result := make([]any, 0, len(v.names))
	for _, name := range v.names {
		value, ok := v.byPerson[name].mostCommon()
		if !ok {
			continue
		}
		result = append(result, map[string]any{
			"name": name,
			"type": value,
		})
	}
	return result
}

// candidateSet counts distinct values by their canonical JSON encoding.
type candidateSet struct {
	order  []string
	counts map[string]int
	values map[string]any
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		counts: make(map[string]int),
		values: make(map[string]any),
	}
}

func (s *candidateSet) add(value any) {
	key, err := canonical(value)
	if err != nil {
		return
	}
	if _, seen := s.counts[key]; !seen {
		s.order = append(s.order, key)
		s.values[key] = value
	}
	s.counts[key]++
}

func (s *candidateSet) mostCommon() (any, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	best := s.order[0]
	for _, key := range s.order[1:] {
		if s.counts[key] > s.counts[best] {
			best = key
		}
	}
	return s.values[best], true
}

// canonical produces a deterministic encoding for counting: Go's JSON
// encoder emits object keys in sorted order, so structurally equal
// values always collide.
func canonical(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
