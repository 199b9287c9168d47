package server

import "github.com/MrKekPlag/serv2/internal/domain"

// Request payloads. Field names match the legacy web client's wire format.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

type DeleteUserRequest struct {
	Username string `json:"username"`
}

type CreateProjectRequest struct {
	Name         string        `json:"name"`
	ID           string        `json:"id"`
	Employees    []string      `json:"employees,omitempty"`
	Goals        []domain.Goal `json:"goals,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	StartDate    string        `json:"startDate,omitempty"`
	EndDate      string        `json:"endDate,omitempty"`
	Deadline     string        `json:"deadline,omitempty"`
	Type         string        `json:"type,omitempty"`
}

// Optional fields carry omitempty: their absence is handled downstream
// (silent no-op goal lookups, the missing-type validation error), not by
// schema validation.

type GoalStatusRequest struct {
	Status   string `json:"status,omitempty"`
	Type     string `json:"type,omitempty"`
	GoalName string `json:"goalName,omitempty"`
}

type RatingRequest struct {
	RatingType string `json:"ratingType,omitempty"`
	Rating     any    `json:"rating,omitempty"`
	Type       string `json:"type,omitempty"`
}

type CompletionDateRequest struct {
	Date string `json:"date"`
	Type string `json:"type,omitempty"`
}

type SelectGoalRequest struct {
	GoalName string `json:"goalName,omitempty"`
	Type     string `json:"type,omitempty"`
}

type TransferRequest struct {
	NewEmployee string `json:"newEmployee"`
}

type AddEmployeeRequest struct {
	NewEmployee string `json:"newEmployee"`
}

type RemoveEmployeeRequest struct {
	EmployeeToRemove string `json:"employeeToRemove"`
}

type CreateFileRequest struct {
	Type string `json:"type,omitempty"`
}

// Response payloads.

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type UserSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
