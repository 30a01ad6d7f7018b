package domain

import (
	"time"

	"github.com/landledger/landledger/internal/pkg/geometry"
)

// Land is a land-ownership record as held by the ledger contract.
type Land struct {
	ID           uint64    `json:"id"`
	Location     string    `json:"location"`
	OwnerName    string    `json:"owner_name"`
	OwnerAddress string    `json:"owner_address"`
	DocumentHash string    `json:"document_hash"`
	Exists       bool      `json:"exists"`
	Area         string    `json:"area"` // mirrors DocumentHash; registrations store the area there
	IndexedAt    time.Time `json:"indexed_at,omitempty"`
}

// Transfer records one confirmed change of ownership.
type Transfer struct {
	LandID       uint64    `json:"land_id"`
	FromAddress  string    `json:"from_address"`
	ToAddress    string    `json:"to_address"`
	NewOwnerName string    `json:"new_owner_name"`
	TxHash       string    `json:"tx_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterLandInput is the registration form.
type RegisterLandInput struct {
	Location     string `json:"location" validate:"required"`
	OwnerName    string `json:"owner_name" validate:"required"`
	DocumentHash string `json:"document_hash" validate:"required"`
}

// TransferLandInput is the transfer form.
type TransferLandInput struct {
	LandID          uint64 `json:"land_id" validate:"required"`
	NewOwnerAddress string `json:"new_owner_address" validate:"required,ethaddr"`
	NewOwnerName    string `json:"new_owner_name" validate:"required"`
}

// LandMarker is a land that can be drawn on the map.
type LandMarker struct {
	Land        Land              `json:"land"`
	Kind        string            `json:"kind"`
	Coordinates geometry.Boundary `json:"coordinates"`
	Center      geometry.Point    `json:"center"`
}

// MapView is the set of markers for an owner plus the count of lands whose
// location could not be drawn.
type MapView struct {
	Markers []LandMarker   `json:"markers"`
	Skipped int            `json:"skipped"`
	Center  geometry.Point `json:"center"`
	Note    string         `json:"note,omitempty"`
}

// BoundaryDraft is what the map drawing produces for the registration form.
type BoundaryDraft struct {
	Location     string  `json:"location"`
	Area         float64 `json:"area"`
	AreaText     string  `json:"area_text"`
	GeodesicArea float64 `json:"geodesic_area"`
	PointCount   int     `json:"point_count"`
}

// LocationSuggestion is an AI-suggested location for a text description.
type LocationSuggestion struct {
	Description    string          `json:"description"`
	GPSCoordinates string          `json:"gps_coordinates"`
	Center         *geometry.Point `json:"center,omitempty"`
}

// LedgerStatus describes the connected ledger.
type LedgerStatus struct {
	Account         string `json:"account,omitempty"`
	ContractAddress string `json:"contract_address"`
	ChainID         string `json:"chain_id"`
	LandCount       uint64 `json:"land_count"`
	Writable        bool   `json:"writable"`
}

// LandEvent is published after a confirmed registration or transfer.
type LandEvent struct {
	Type         string    `json:"type"` // "registered" | "transferred"
	LandID       uint64    `json:"land_id"`
	OwnerAddress string    `json:"owner_address"`
	OwnerName    string    `json:"owner_name"`
	FromAddress  string    `json:"from_address,omitempty"`
	TxHash       string    `json:"tx_hash"`
	Time         time.Time `json:"time"`
}

const (
	EventRegistered  = "registered"
	EventTransferred = "transferred"
)
