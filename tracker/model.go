package tracker

import "time"

// Values the backend uses for the list filters
var (
	ProjectStatuses = []string{"ACTIVE", "CLOSED"}
	DefectStatuses  = []string{"OPEN", "IN_PROGRESS", "RESOLVED", "CLOSED"}
	Severities      = []string{"CRITICAL", "MAJOR", "MINOR", "TRIVIAL"}
)

type Project struct {
	ID        string    `json:"projectId"`
	Name      string    `json:"projectName"`
	Status    string    `json:"status"` // ACTIVE, CLOSED
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Defect struct {
	ID          string    `json:"defectId"`
	ProjectID   string    `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity"` // CRITICAL, MAJOR, MINOR, TRIVIAL
	Status      string    `json:"status"`   // OPEN, IN_PROGRESS, RESOLVED, CLOSED
	ReporterID  string    `json:"reporterId"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Page is one slice of a filtered list
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// Pages is the number of pages the whole list spans
func (p Page[T]) Pages() int {
	if p.Size <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.Pages()
}
