// Package models provides canonical type definitions for booking API entities.
// These types are shared by the API client, the controllers and the CLI.
package models

// Company is the owner of projects, members and roles.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role is a company-defined job a member can fill on an event.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reminders toggles the automatic reminder notifications.
type Reminders struct {
	WeekBefore bool `json:"weekBefore"`
	DayBefore  bool `json:"dayBefore"`
}

// Client is the optional end-client contact attached to a project.
type Client struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	CC     string `json:"cc,omitempty"`
}

// Assignment binds one member to one role within one event.
type Assignment struct {
	MemberID     string `json:"memberId"`
	MemberName   string `json:"memberName,omitempty"`
	RoleID       string `json:"roleId"`
	Instructions string `json:"instructions,omitempty"`
}

// Event is a single dated session within a project.
type Event struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId,omitempty"`
	Name        string       `json:"name"`
	Date        string       `json:"date"`
	StartHour   int          `json:"startHour"`
	EndHour     int          `json:"endHour"`
	Location    string       `json:"location"`
	Reminders   Reminders    `json:"reminders"`
	Assignments []Assignment `json:"assignments"`
}

// Project is a booking engagement as returned by the API.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	Client      *Client   `json:"client,omitempty"`
	Reminders   Reminders `json:"reminders"`
	Events      []Event   `json:"events"`
	Company     *Company  `json:"company,omitempty"`
	Brief       []Section `json:"brief,omitempty"`
	Logistics   []Section `json:"logistics,omitempty"`
}
