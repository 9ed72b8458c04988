package models

import "time"

// Event types
const (
	EventTypeDatasetLoaded     = "DATASET_LOADED"
	EventTypeVisitListExported = "VISIT_LIST_EXPORTED"
	EventTypeSourceUpdated     = "SOURCE_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DatasetLoadedEvent published after a source was fetched and parsed
type DatasetLoadedEvent struct {
	BaseEvent
	SourceID   string `json:"source_id"`
	Orders     int    `json:"orders"`
	Deliveries int    `json:"deliveries"`
	Customers  int    `json:"customers"`
}

// VisitListExportedEvent published when the alert visit list is exported
type VisitListExportedEvent struct {
	BaseEvent
	SourceID               string      `json:"source_id"`
	RecencyThresholdDays   int         `json:"recency_threshold_days"`
	EffectivenessThreshold float64     `json:"effectiveness_threshold"`
	Visits                 []VisitData `json:"visits"`
}

// SourceUpdatedEvent signals that a source changed and its cache is stale
type SourceUpdatedEvent struct {
	BaseEvent
	SourceID string `json:"source_id"`
}

// VisitData represents one customer in a visit list event
type VisitData struct {
	CustomerID string   `json:"customer_id"`
	Zone       string   `json:"zone"`
	Priority   Priority `json:"priority"`
}
