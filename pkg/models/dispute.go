package models

import "time"

// Arbitrator is read-only reference data for dispute assignment
type Arbitrator struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// DisputeOrder is the order summary embedded in a dispute
type DisputeOrder struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Client string `json:"client"`
	Expert string `json:"expert,omitempty"`
}

// Dispute represents an order dispute. Result is present iff Resolved is
// true; Arbitrator is nil until one has been assigned.
type Dispute struct {
	ID         int          `json:"id"`
	Order      DisputeOrder `json:"order"`
	Reason     string       `json:"reason"`
	Resolved   bool         `json:"resolved"`
	Result     *string      `json:"result,omitempty"`
	Arbitrator *Arbitrator  `json:"arbitrator,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
