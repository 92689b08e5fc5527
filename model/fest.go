package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FestStatus string

const (
	FestDraft     FestStatus = "draft"
	FestPublished FestStatus = "published"
	FestCancelled FestStatus = "cancelled"
	FestCompleted FestStatus = "completed"
)

var FestStatuses = mapset.NewSet[FestStatus](FestDraft, FestPublished, FestCancelled, FestCompleted)

const (
	EntryFree = "Free"
	EntryPaid = "Paid"
)

type Location struct {
	City        string    `json:"city" bson:"city"`
	State       string    `json:"state" bson:"state"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

type Organizer struct {
	Name      string `json:"name" bson:"name"`
	Role      string `json:"role" bson:"role"`
	College   string `json:"college" bson:"college"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
	Linkedin  string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
}

// Event is a sub-event of a fest (a competition, workshop, show...).
type Event struct {
	Name     string `json:"name" bson:"name"`
	Date     string `json:"date" bson:"date"`
	Time     string `json:"time" bson:"time"`
	Venue    string `json:"venue" bson:"venue"`
	Category string `json:"category" bson:"category"`
	Prize    string `json:"prize,omitempty" bson:"prize,omitempty"`
	Limit    string `json:"limit,omitempty" bson:"limit,omitempty"`
}

type Fest struct {
	Id                 primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title              string             `json:"title" bson:"title"`
	Slug               string             `json:"slug" bson:"slug"`
	Category           string             `json:"category" bson:"category"`
	Description        string             `json:"description" bson:"description"`
	Image              string             `json:"image" bson:"image"`
	Tagline            string             `json:"tagline,omitempty" bson:"tagline,omitempty"`
	College            string             `json:"college" bson:"college"`
	Date               string             `json:"date" bson:"date"`
	Duration           string             `json:"duration,omitempty" bson:"duration,omitempty"`
	Location           Location           `json:"location" bson:"location"`
	Organizer          Organizer          `json:"organizer" bson:"organizer"`
	EntryType          string             `json:"entryType" bson:"entryType"`
	EntryFee           float64            `json:"entryFee" bson:"entryFee"`
	ExpectedFootfall   string             `json:"expectedFootfall,omitempty" bson:"expectedFootfall,omitempty"`
	Website            string             `json:"website,omitempty" bson:"website,omitempty"`
	Brochure           string             `json:"brochure,omitempty" bson:"brochure,omitempty"`
	Events             []Event            `json:"events" bson:"events"`
	HostedBy           primitive.ObjectID `json:"hostedBy" bson:"hostedBy"`
	RegistrationsCount int                `json:"registrationsCount" bson:"registrationsCount"`
	Status             FestStatus         `json:"status" bson:"status"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ApplyDefaults trims text fields, normalises the slug and fills the default values.
func (f *Fest) ApplyDefaults() {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = Slugify(f.Slug)
	if f.EntryType == "" {
		f.EntryType = EntryFree
	}
	if f.Events == nil {
		f.Events = []Event{}
	}
	if f.Status == "" {
		f.Status = FestPublished
	}
}

func (f Fest) IsHostedBy(userId primitive.ObjectID) bool {
	return f.HostedBy.Hex() == userId.Hex()
}

// Fee is the amount a registration owes, zero for free fests.
func (f Fest) Fee() float64 {
	if f.EntryType == EntryPaid && f.EntryFee > 0 {
		return f.EntryFee
	}
	return 0
}

func (f Fest) EventNames() mapset.Set[string] {
	names := mapset.NewSet[string]()
	for _, e := range f.Events {
		names.Add(e.Name)
	}
	return names
}

func (f Fest) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"title", f.Title},
		{"slug", f.Slug},
		{"category", f.Category},
		{"description", f.Description},
		{"image", f.Image},
		{"college", f.College},
		{"date", f.Date},
		{"location.city", f.Location.City},
		{"location.state", f.Location.State},
		{"organizer.name", f.Organizer.Name},
		{"organizer.role", f.Organizer.Role},
		{"organizer.college", f.Organizer.College},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	for i, e := range f.Events {
		for _, r := range []struct {
			field string
			value string
		}{
			{"name", e.Name}, {"date", e.Date}, {"time", e.Time}, {"venue", e.Venue}, {"category", e.Category},
		} {
			if strings.TrimSpace(r.value) == "" {
				missing = append(missing, fmt.Sprintf("events.%d.%s", i, r.field))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if !FestStatuses.Contains(f.Status) {
		return fmt.Errorf("invalid status %q", f.Status)
	}
	if f.EntryFee < 0 {
		return errors.New("entry fee cannot be negative")
	}
	if len(f.Location.Coordinates) != 0 && len(f.Location.Coordinates) != 2 {
		return errors.New("location coordinates must be [latitude, longitude]")
	}
	return nil
}

// FestSummary is the projection used when a fest is populated into a registration.
type FestSummary struct {
	Id                 primitive.ObjectID `json:"_id"`
	Title              string             `json:"title"`
	Slug               string             `json:"slug"`
	College            string             `json:"college"`
	Date               string             `json:"date"`
	Location           Location           `json:"location"`
	Image              string             `json:"image"`
	Category           string             `json:"category"`
	EntryType          string             `json:"entryType"`
	RegistrationsCount int                `json:"registrationsCount"`
}

func (f Fest) Summary() FestSummary {
	return FestSummary{
		Id:                 f.Id,
		Title:              f.Title,
		Slug:               f.Slug,
		College:            f.College,
		Date:               f.Date,
		Location:           f.Location,
		Image:              f.Image,
		Category:           f.Category,
		EntryType:          f.EntryType,
		RegistrationsCount: f.RegistrationsCount,
	}
}

type FestQuery struct {
	Category string
	Search   string
	Skip     int64
	Limit    int64
}

type FestsPage struct {
	Fests []Fest `json:"fests"`
	Total int64  `json:"total"`
	Skip  int64  `json:"skip"`
	Limit int64  `json:"limit"`
}
