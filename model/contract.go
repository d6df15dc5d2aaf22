package model

import (
	"fmt"
	"time"
)

// Contract is the record kept for a submitted contract PDF.
type Contract struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	ObjectKey     string    `json:"object_key"`
	OriginalKey   string    `json:"original_key"`
	ArtistName    string    `json:"artist_name,omitempty"`
	LabelName     string    `json:"label_name,omitempty"`
	ArtistEmail   string    `json:"artist_email"`
	LabelEmail    string    `json:"label_email"`
	ArtistAddress string    `json:"artist_address,omitempty"`
	LabelAddress  string    `json:"label_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status is a decision stamped onto a contract.
type Status string

const (
	StatusAccept       Status = "Accept"
	StatusReject       Status = "Reject"
	StatusCounterOffer Status = "CounterOffer"
)

// Point is a position in PDF user space, origin bottom-left.
type Point struct {
	X float64
	Y float64
}

var statusPositions = map[Status]Point{
	StatusAccept:       {X: 50, Y: 680},
	StatusReject:       {X: 100, Y: 680},
	StatusCounterOffer: {X: 150, Y: 680},
}

// ParseStatus accepts only the exact status names.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := statusPositions[status]; !ok {
		return "", Invalid(fmt.Sprintf("Invalid status %q. Expected Accept, Reject or CounterOffer.", s))
	}
	return status, nil
}

// Position returns where the status mark is drawn on page 2.
func (s Status) Position() (Point, bool) {
	p, ok := statusPositions[s]
	return p, ok
}
