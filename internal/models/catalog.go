package models

// DomainInfo describes a learning track and the size of its checklist
type DomainInfo struct {
	ID          Domain `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TasksCount  int    `json:"tasksCount"`
	TotalPoints int    `json:"totalPoints"`
}

// TaskTemplate is one entry of a domain's static checklist
type TaskTemplate struct {
	Name   string `json:"name" yaml:"name"`
	Points int    `json:"points" yaml:"points"`
}
