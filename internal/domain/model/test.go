package model

import "time"

type Test struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	DurationInMinutes int       `json:"duration_in_minutes"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ClassroomTest schedules a Test into a Classroom.
type ClassroomTest struct {
	ID           string    `json:"classroom_test_id"`
	ClassroomID  string    `json:"classroom_id"`
	TestID       string    `json:"test_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	CreatedBy    string    `json:"created_by"`
	SupervisorID *string   `json:"supervisor_id,omitempty"`

	// joined from tests
	Title             string `json:"title,omitempty"`
	Description       string `json:"description,omitempty"`
	DurationInMinutes int    `json:"duration_in_minutes,omitempty"`
	ClassroomName     string `json:"classroom_name,omitempty"`
}

// EndsAt is the close of the test window.
func (ct *ClassroomTest) EndsAt() time.Time {
	return ct.ScheduledAt.Add(time.Duration(ct.DurationInMinutes) * time.Minute)
}

type TestStatus string

const (
	TestUpcoming  TestStatus = "Upcoming"
	TestOngoing   TestStatus = "Ongoing"
	TestAttempted TestStatus = "Attempted"
	TestAbsent    TestStatus = "Absent"
)

// StudentTest is a scheduled test annotated for one student.
type StudentTest struct {
	ClassroomTest
	Status TestStatus `json:"status"`
}

type SupervisedTest struct {
	ClassroomTest
	StudentCount int `json:"student_count"`
}

type Attendance struct {
	ClassroomTestID string    `json:"classroom_test_id"`
	StudentID       string    `json:"student_id"`
	RollNo          string    `json:"roll_no,omitempty"`
	UserName        string    `json:"user_name,omitempty"`
	IsPresent       bool      `json:"is_present"`
	TabSwitchCount  int       `json:"tab_switch_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}
