// Package models defines conversation state structures for ClinicFlow flows.
package models

import "time"

// FlowKind identifies which flow, if any, a user currently has active.
type FlowKind string

// Flow kind constants.
const (
	FlowKindNone        FlowKind = "none"
	FlowKindAppointment FlowKind = "appointment"
	FlowKindAssistant   FlowKind = "assistant"
)

// AppointmentStep is one step of the appointment booking state machine.
type AppointmentStep string

// Appointment steps, in strict order. Each step is entered only after the
// previous one validated.
const (
	StepName      AppointmentStep = "name"
	StepDate      AppointmentStep = "date"
	StepTime      AppointmentStep = "time"
	StepConsulta  AppointmentStep = "consulta"
	StepMonto     AppointmentStep = "monto"
	StepProveedor AppointmentStep = "proveedor"
	StepRIF       AppointmentStep = "rif"
	StepPago      AppointmentStep = "pago"
	StepCompleted AppointmentStep = "completed"
)

// AssistantStep is the (single) step of the AI assistant flow.
type AssistantStep string

// StepQuestion means the flow is awaiting the user's question.
const StepQuestion AssistantStep = "question"

// AppointmentDraft accumulates booking data step by step. Fields for steps
// not yet reached are empty strings.
type AppointmentDraft struct {
	Step      AppointmentStep `json:"step"`
	Name      string          `json:"name,omitempty"`
	Date      string          `json:"date,omitempty"` // DD/MM/YYYY
	Time      string          `json:"time,omitempty"` // 12h or 24h clock text
	Consulta  string          `json:"consulta,omitempty"`
	Monto     string          `json:"monto,omitempty"` // normalized to 2 decimals
	Proveedor string          `json:"proveedor,omitempty"`
	RIF       string          `json:"rif,omitempty"` // uppercased
	Pago      string          `json:"pago,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AssistantDraft marks a user as awaiting an AI answer. Each question is
// answered independently, so no fields accumulate.
type AssistantDraft struct {
	Step      AssistantStep `json:"step"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ConversationState is the single per-user state slot. Exactly one of
// Appointment or Assistant is non-nil when Kind is not FlowKindNone.
type ConversationState struct {
	Kind        FlowKind          `json:"kind"`
	Appointment *AppointmentDraft `json:"appointment,omitempty"`
	Assistant   *AssistantDraft   `json:"assistant,omitempty"`
}

// Touched reports the time of the state's last mutation, used for idle expiry.
func (s ConversationState) Touched() time.Time {
	switch s.Kind {
	case FlowKindAppointment:
		if s.Appointment != nil {
			return s.Appointment.UpdatedAt
		}
	case FlowKindAssistant:
		if s.Assistant != nil {
			return s.Assistant.UpdatedAt
		}
	}
	return time.Time{}
}
