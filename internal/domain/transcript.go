package domain

import "time"

// Transcript is one raw interview record as returned by the transcript
// source for a case number. It exists only in memory during dispatch;
// the persisted form is the TranscriptTask derived from it.
type Transcript struct {
	IntervieweeName string     `json:"interviewee_name"`
	IDNumber        string     `json:"id_number"`
	InterviewType   string     `json:"interview_type"`
	Content         string     `json:"content"`
	RecordedAt      *time.Time `json:"recorded_at,omitempty"`
	RegisterDept    string     `json:"register_dept"`
}
