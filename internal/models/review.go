package models

import "time"

const (
	// MinRating is the lowest rating a review can give
	MinRating = 1
	// MaxRating is the highest rating a review can give
	MaxRating = 10
)

// Review is the rating of a bootcamp written by a user. Every user can review a bootcamp only once.
type Review struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	Title     string    `db:"title" json:"title" bson:"title"`
	Text      string    `db:"text" json:"text" bson:"text"`
	Rating    int       `db:"rating" json:"rating" bson:"rating"`
	CreatedAt time.Time `db:"createdAt" json:"createdAt" bson:"createdAt"`
	// ID of the reviewed bootcamp
	Bootcamp string `db:"bootcampId" json:"bootcamp" bson:"bootcamp"`
	// ID of the author
	UserID string `db:"userId" json:"-" bson:"user"`
	// The author - populated on read
	User *UserRef `db:"-" json:"user,omitempty" bson:"-"`
}
