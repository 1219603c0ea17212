package checkin

import "time"

// Status of a recorded check-in.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// DateLayout is the wire format for check-in dates.
const DateLayout = "2006-01-02"

// CheckIn is one attendance record: one student, one subject, one date with a
// status. Duplicates for the same (student, subject, date) are allowed.
type CheckIn struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	StudentID string
	SubjectID string
	Status    Status
	From      string
	To        string
	Limit     int
	Offset    int
}

// Summary aggregates check-ins for one subject or student. The per-status
// counts always sum to Total.
type Summary struct {
	Scope   string  `json:"scope"`
	ID      string  `json:"id"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

func summarize(scope, id string, counts map[Status]int) Summary {
	s := Summary{
		Scope:   scope,
		ID:      id,
		Present: counts[StatusPresent],
		Absent:  counts[StatusAbsent],
		Late:    counts[StatusLate],
		Excused: counts[StatusExcused],
	}
	s.Total = s.Present + s.Absent + s.Late + s.Excused
	if s.Total > 0 {
		s.Rate = float64(s.Present+s.Late) / float64(s.Total)
	}
	return s
}

// Readiness reports whether enough setup data exists to start recording.
type Readiness struct {
	HasStudents        bool  `json:"has_students"`
	HasSubjects        bool  `json:"has_subjects"`
	SubjectHasStudents *bool `json:"subject_has_students,omitempty"`
	Ready              bool  `json:"ready"`
}
