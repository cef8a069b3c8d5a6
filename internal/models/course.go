package models

import "time"

// Minimum skill levels of a course
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Course is a course offered by a bootcamp
type Course struct {
	ID          string `db:"id" json:"id" bson:"_id"`
	Title       string `db:"title" json:"title" bson:"title"`
	Description string `db:"description" json:"description" bson:"description"`
	// Duration in weeks
	Weeks                string    `db:"weeks" json:"weeks" bson:"weeks"`
	Tuition              float64   `db:"tuition" json:"tuition" bson:"tuition"`
	MinimumSkill         string    `db:"minimumSkill" json:"minimumSkill" bson:"minimumSkill"`
	ScholarshipAvailable bool      `db:"scholarshipAvailable" json:"scholarshipAvailable" bson:"scholarshipAvailable"`
	CreatedAt            time.Time `db:"createdAt" json:"createdAt" bson:"createdAt"`
	// ID of the bootcamp offering the course
	BootcampID string `db:"bootcampId" json:"-" bson:"bootcamp"`
	// The bootcamp offering the course - populated on read
	Bootcamp *BootcampRef `db:"-" json:"bootcamp,omitempty" bson:"-"`
	// ID of the publisher owning the course
	User string `db:"userId" json:"user" bson:"user"`
}

// ValidSkill checks if the given value is a known minimum skill level
func ValidSkill(skill string) bool {
	return skill == SkillBeginner || skill == SkillIntermediate || skill == SkillAdvanced
}
