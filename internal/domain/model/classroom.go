package model

import "time"

type Classroom struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is a user as listed inside a classroom.
type Member struct {
	ID       string `json:"id"`
	RollNo   string `json:"roll_no"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
}
