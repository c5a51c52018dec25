package handledning

// QueueStatus is a student's state in the supervision queue.
type QueueStatus string

const (
	StatusWaiting    QueueStatus = "waiting"
	StatusInProgress QueueStatus = "in_progress"
	StatusCompleted  QueueStatus = "completed"
)

// QueueEntry is one student in a session's queue. QueuedAt is the clock
// time the student signed up, as printed on the page.
type QueueEntry struct {
	Student  string      `json:"student"`
	Position int         `json:"position"`
	Status   QueueStatus `json:"status"`
	QueuedAt string      `json:"queued_at,omitempty"`
	Room     string      `json:"room,omitempty"`
}

// Session is a supervision session. Times are clock times in HH:MM.
type Session struct {
	ID         string `json:"id,omitempty"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name,omitempty"`
	Teacher    string `json:"teacher"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Room       string `json:"room,omitempty"`
	Active     bool   `json:"active"`
}
