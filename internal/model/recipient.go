// internal/model/recipient.go
package model

import "time"

type PopulationScope string

const (
	PopulationAll    PopulationScope = "ALL"
	PopulationRegion PopulationScope = "REGION"
)

type StatusFilter string

const (
	StatusFilterActive StatusFilter = "ACTIVE"
	StatusFilterAll    StatusFilter = "ALL"
)

// RecipientScope is computed per compose session and never persisted.
type RecipientScope struct {
	Population   PopulationScope `json:"populationScope"`
	RegionID     string          `json:"regionId,omitempty"`
	StatusFilter StatusFilter    `json:"statusFilter"`
}

type RegionStat struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CustomerCount int    `json:"customerCount"`
	ActiveCount   int    `json:"activeCount"`
}

type CustomerStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
	Suspended int `json:"suspended"`
}

// StatsSnapshot is the aggregate dataset counts are resolved from.
type StatsSnapshot struct {
	Customers CustomerStats `json:"customers"`
	Regions   []RegionStat  `json:"regions"`
	FetchedAt time.Time     `json:"fetchedAt"`
}
