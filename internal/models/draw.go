package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DrawTrigger identifies what started a draw cycle
type DrawTrigger string

const (
	DrawTriggerScheduled DrawTrigger = "scheduled"
	DrawTriggerManual    DrawTrigger = "manual"
)

// DrawRunStatus represents the final state of a draw cycle
type DrawRunStatus string

const (
	DrawRunStatusCompleted DrawRunStatus = "completed"
	// DrawRunStatusPartial marks a cycle in which at least one raffle failed.
	DrawRunStatusPartial DrawRunStatus = "partial"
)

// DrawOutcome is the result of processing one due raffle in a draw cycle
type DrawOutcome struct {
	RaffleID      primitive.ObjectID  `bson:"raffleId" json:"raffleId"`
	TicketRange   int                 `bson:"ticketRange" json:"ticketRange"`
	WinningNumber int                 `bson:"winningNumber" json:"winningNumber"`
	WinnerID      *primitive.ObjectID `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	Participants  int                 `bson:"participants" json:"participants"`
	Completed     bool                `bson:"completed" json:"completed"`
	Error         string              `bson:"error,omitempty" json:"error,omitempty"`
}

// DrawRun is the journal entry for one draw cycle
type DrawRun struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Trigger        DrawTrigger        `bson:"trigger" json:"trigger"`
	DrawTime       time.Time          `bson:"drawTime" json:"drawTime"`
	Status         DrawRunStatus      `bson:"status" json:"status"`
	WinningNumbers map[string]int     `bson:"winningNumbers" json:"winningNumbers"` // keyed by ticket range
	Outcomes       []DrawOutcome      `bson:"outcomes" json:"outcomes"`
	ExecutionStart time.Time          `bson:"executionStartTime" json:"executionStartTime"`
	ExecutionEnd   time.Time          `bson:"executionEndTime" json:"executionEndTime"`
	ExecutionLog   []string           `bson:"executionLog,omitempty" json:"executionLog,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
