package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
	PaymentRefunded    PaymentStatus = "refunded"
	PaymentNotRequired PaymentStatus = "not_required"
)

type Registration struct {
	Id               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User             primitive.ObjectID `json:"user" bson:"user"`
	Fest             primitive.ObjectID `json:"fest" bson:"fest"`
	RegisteredEvents []string           `json:"registeredEvents" bson:"registeredEvents"`
	Status           RegistrationStatus `json:"status" bson:"status"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus" bson:"paymentStatus"`
	PaymentAmount    float64            `json:"paymentAmount" bson:"paymentAmount"`
	RegistrationDate time.Time          `json:"registrationDate" bson:"registrationDate"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (r Registration) IsCancelled() bool {
	return r.Status == RegistrationCancelled
}

func (r Registration) IsOwnedBy(userId primitive.ObjectID) bool {
	return r.User.Hex() == userId.Hex()
}

// RegistrationView is a registration with its user and/or fest populated.
// Either reference stays a bare id when it was not populated.
type RegistrationView struct {
	Registration
	User interface{} `json:"user"`
	Fest interface{} `json:"fest"`
}

func (r Registration) View() RegistrationView {
	return RegistrationView{Registration: r, User: r.User, Fest: r.Fest}
}
