package health

import "time"

// Status is the availability snapshot returned by the health endpoint.
type Status struct {
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"startedAt"`
	Uptime      string    `json:"uptime"`
	UptimeSecs  int64     `json:"uptimeSeconds"`
}
