package containers

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeNetWeight = errors.New("containers: negative net weight")
	ErrVersionConflict   = errors.New("containers: concurrent update")
	ErrArchived          = errors.New("containers: container is archived")
)

// NegativeNetWeightError carries the computed figures so the operator can see
// which reading or tare is wrong.
type NegativeNetWeightError struct {
	ContainerID string
	Gross       float64
	Tare        float64
	Net         float64
}

func (e NegativeNetWeightError) Error() string {
	return fmt.Sprintf("container %s: gross %.3f is below tare %.3f (net %.3f)", e.ContainerID, e.Gross, e.Tare, e.Net)
}

func (e NegativeNetWeightError) Is(target error) bool { return target == ErrNegativeNetWeight }
