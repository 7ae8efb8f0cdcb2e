package models

// CommandAction is a validated action proposal. It is never executed by kotae.
type CommandAction struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// RejectedAction records a proposed action dropped by validation.
type RejectedAction struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
