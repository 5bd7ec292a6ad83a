package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallType classifies what kind of support call an incident is.
type CallType string

const (
	CallTypeBug            CallType = "BUG"
	CallTypeChangeRequest  CallType = "CHANGE_REQUEST"
	CallTypeClarification  CallType = "CLARIFICATION"
	CallTypeDataCorrection CallType = "DATA_CORRECTION"
	CallTypeEnhancement    CallType = "ENHANCEMENT"
	CallTypeReport         CallType = "REPORT"
	CallTypePerformance    CallType = "PERFORMANCE"
	CallTypeUserAccess     CallType = "USER_ACCESS"
)

// Module identifies which ERP module an incident was raised against.
type Module string

const (
	ModuleFinance     Module = "FINANCE"
	ModuleHR          Module = "HR"
	ModuleInventory   Module = "INVENTORY"
	ModuleProcurement Module = "PROCUREMENT"
	ModuleSales       Module = "SALES"
	ModuleProduction  Module = "PRODUCTION"
)

// Priority enumerates urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// SupportStatus is the staff-side lifecycle state, driven by ERP/Admin.
type SupportStatus string

const (
	SupportStatusPending    SupportStatus = "PENDING"
	SupportStatusInProgress SupportStatus = "IN_PROGRESS"
	SupportStatusOnHold     SupportStatus = "ON_HOLD"
	SupportStatusResolved   SupportStatus = "RESOLVED"
)

// IncidentUserStatus is the reporter-side lifecycle state.
type IncidentUserStatus string

const (
	IncidentUserStatusPending    IncidentUserStatus = "PENDING"
	IncidentUserStatusInProgress IncidentUserStatus = "IN_PROGRESS"
	IncidentUserStatusClosed     IncidentUserStatus = "CLOSED"
)

// Incident is the aggregate for logged support calls.
//
// LoggedById, classification and the narrative fields are fixed at creation;
// only Suggestion, UserStatus, SupportStatus, AssignedToId and DeliveryDate
// are ever mutated afterwards.
type Incident struct {
	ID                uuid.UUID
	CallRef           string
	LoggedById        uuid.UUID
	AssignedToId      *uuid.UUID
	CallType          CallType
	Module            Module
	Priority          Priority
	UrlOrFormName     string
	IsRecurring       bool
	RecurringCallId   *uuid.UUID
	Subject           string
	Description       string
	Suggestion        *string
	SupportStatus     SupportStatus
	UserStatus        IncidentUserStatus
	CreatedDate       time.Time
	DeliveryDate      *time.Time
	StatusUpdatedDate time.Time
	ClosedDate        *time.Time
	IsDeleted         bool
}

// Close stamps ClosedDate the first time the user status reaches CLOSED.
// Once set, ClosedDate is never cleared; there is no reopen path.
func (i *Incident) Close(now time.Time) {
	i.UserStatus = IncidentUserStatusClosed
	if i.ClosedDate == nil {
		i.ClosedDate = &now
	}
}

var validCallTypes = map[CallType]struct{}{
	CallTypeBug: {}, CallTypeChangeRequest: {}, CallTypeClarification: {},
	CallTypeDataCorrection: {}, CallTypeEnhancement: {}, CallTypeReport: {},
	CallTypePerformance: {}, CallTypeUserAccess: {},
}

var validModules = map[Module]struct{}{
	ModuleFinance: {}, ModuleHR: {}, ModuleInventory: {},
	ModuleProcurement: {}, ModuleSales: {}, ModuleProduction: {},
}

var validPriorities = map[Priority]struct{}{
	PriorityLow: {}, PriorityMedium: {}, PriorityHigh: {}, PriorityUrgent: {},
}

var validSupportStatuses = map[SupportStatus]struct{}{
	SupportStatusPending: {}, SupportStatusInProgress: {},
	SupportStatusOnHold: {}, SupportStatusResolved: {},
}

var validUserStatuses = map[IncidentUserStatus]struct{}{
	IncidentUserStatusPending: {}, IncidentUserStatusInProgress: {},
	IncidentUserStatusClosed: {},
}

// Valid reports whether the value is a known call type.
func (c CallType) Valid() bool {
	_, ok := validCallTypes[c]
	return ok
}

// Valid reports whether the value is a known module.
func (m Module) Valid() bool {
	_, ok := validModules[m]
	return ok
}

// Valid reports whether the value is a known priority.
func (p Priority) Valid() bool {
	_, ok := validPriorities[p]
	return ok
}

// Valid reports whether the value is a known support status.
func (s SupportStatus) Valid() bool {
	_, ok := validSupportStatuses[s]
	return ok
}

// Valid reports whether the value is a known user status.
func (s IncidentUserStatus) Valid() bool {
	_, ok := validUserStatuses[s]
	return ok
}
