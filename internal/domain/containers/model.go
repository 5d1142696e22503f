package containers

import "time"

type Status string

const (
	StatusActive     Status = "active"
	StatusBackstock  Status = "backstock"
	StatusQuarantine Status = "quarantine"
	StatusEmpty      Status = "empty"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBackstock, StatusQuarantine, StatusEmpty, StatusArchived:
		return true
	}
	return false
}

type MeasurementType string

const (
	MeasureInventoryCount MeasurementType = "inventory_count"
	MeasureProductionUse  MeasurementType = "production_use"
	MeasureAdjustment     MeasurementType = "adjustment"
	MeasureRefill         MeasurementType = "refill"
)

func (t MeasurementType) Valid() bool {
	switch t {
	case MeasureInventoryCount, MeasureProductionUse, MeasureAdjustment, MeasureRefill:
		return true
	}
	return false
}

// Container is a physical vessel holding product. Version increments on every write.
type Container struct {
	ID             string
	CalculatedTare *float64 // derived from the packaging BOM
	RefinedTare    *float64 // operator-confirmed override
	CurrentGross   float64
	CurrentNet     float64
	WeightUnit     string
	Status         Status
	Version        int64
	UpdatedAt      time.Time
}

// WeightMeasurement is an append-only ledger row.
type WeightMeasurement struct {
	ID          string
	ContainerID string
	Gross       float64
	TareUsed    float64
	Net         float64
	Type        MeasurementType
	MeasuredBy  string
	Notes       string
	Timestamp   time.Time
}

// CaptureRequest is a scale reading submitted for a container.
type CaptureRequest struct {
	ContainerID string
	Gross       float64
	Type        MeasurementType
	Actor       string
	Notes       string
}
