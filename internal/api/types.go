package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmdmdm-nz/reachd/pkg/reachability"
)

// StatusSource is the monitor the API reports on.
type StatusSource interface {
	Status() reachability.Status
	TargetHost() string
	ID() uuid.UUID
}

// StatusResponse is the body of GET /status and the first message on
// /ws/status.
type StatusResponse struct {
	Host         string              `json:"host"`
	Monitor      uuid.UUID           `json:"monitor"`
	Status       reachability.Status `json:"status"`
	Reachable    bool                `json:"reachable"`
	Cellular     bool                `json:"cellular"`
	LocalNetwork bool                `json:"localNetwork"`
	Time         time.Time           `json:"time"`
}

func newStatusResponse(host string, monitor uuid.UUID, s reachability.Status, at time.Time) StatusResponse {
	return StatusResponse{
		Host:         host,
		Monitor:      monitor,
		Status:       s,
		Reachable:    s.IsReachable(),
		Cellular:     s == reachability.ReachableViaCellular,
		LocalNetwork: s == reachability.ReachableViaLocalNetwork,
		Time:         at,
	}
}

func snapshot(src StatusSource) StatusResponse {
	return newStatusResponse(src.TargetHost(), src.ID(), src.Status(), time.Now())
}
