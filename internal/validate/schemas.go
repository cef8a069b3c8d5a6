package validate

import (
	"encoding/json"
	"fmt"

	"github.com/derWhity/devcamper/internal/models"
)

func enum(values ...string) string {
	raw, _ := json.Marshal(values)
	return string(raw)
}

// object builds an object schema from property definitions. Required fields are only enforced when requireFields is
// set - updates accept any subset of the fields.
func object(props string, requireFields bool, required ...string) string {
	req := "[]"
	if requireFields && len(required) > 0 {
		req = enum(required...)
	}
	return fmt.Sprintf(`{"type": "object", "properties": {%s}, "required": %s}`, props, req)
}

var (
	userProps = `
		"name": {"type": "string", "minLength": 1, "maxLength": 128},
		"email": {"type": "string", "format": "email"},
		"password": {"type": "string", "minLength": 6},
		"role": {"enum": ` + enum(models.RoleUser, models.RolePublisher, models.RoleAdmin) + `}`
	registerProps = `
		"name": {"type": "string", "minLength": 1, "maxLength": 128},
		"email": {"type": "string", "format": "email"},
		"password": {"type": "string", "minLength": 6},
		"role": {"enum": ` + enum(models.RoleUser, models.RolePublisher) + `}`
	bootcampProps = `
		"name": {"type": "string", "minLength": 1, "maxLength": 50},
		"description": {"type": "string", "minLength": 1, "maxLength": 500},
		"website": {"type": "string", "pattern": "^https?://"},
		"phone": {"type": "string", "maxLength": 20},
		"email": {"type": "string", "format": "email"},
		"address": {"type": "string", "minLength": 1},
		"careers": {"type": "array", "minItems": 1, "items": {"enum": ` + enum(models.Careers...) + `}},
		"housing": {"type": "boolean"},
		"jobAssistance": {"type": "boolean"},
		"jobGuarantee": {"type": "boolean"},
		"acceptGi": {"type": "boolean"}`
	courseProps = `
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"weeks": {"type": "string", "minLength": 1},
		"tuition": {"type": "number", "minimum": 0},
		"minimumSkill": {"enum": ` + enum(models.SkillBeginner, models.SkillIntermediate, models.SkillAdvanced) + `},
		"scholarshipAvailable": {"type": "boolean"}`
	reviewProps = `
		"title": {"type": "string", "minLength": 1, "maxLength": 100},
		"text": {"type": "string", "minLength": 1},
		"rating": {"type": "integer", "minimum": ` + fmt.Sprint(models.MinRating) + `, "maximum": ` +
		fmt.Sprint(models.MaxRating) + `}`
)

// The schemas of all request bodies
var (
	Register = MustCompile(object(registerProps, true, "name", "email", "password"))
	Login    = MustCompile(object(`
		"email": {"type": "string", "minLength": 1},
		"password": {"type": "string", "minLength": 1}`, true, "email", "password"))
	UpdateDetails = MustCompile(object(`
		"name": {"type": "string", "minLength": 1, "maxLength": 128},
		"email": {"type": "string", "format": "email"}`, false))
	UpdatePassword = MustCompile(object(`
		"currentPassword": {"type": "string", "minLength": 1},
		"newPassword": {"type": "string", "minLength": 6}`, true, "currentPassword", "newPassword"))
	ForgotPassword = MustCompile(object(`"email": {"type": "string", "format": "email"}`, true, "email"))
	ResetPassword  = MustCompile(object(`"password": {"type": "string", "minLength": 6}`, true, "password"))

	CreateUser = MustCompile(object(userProps, true, "name", "email", "password"))
	UpdateUser = MustCompile(object(userProps, false))

	CreateBootcamp = MustCompile(object(bootcampProps, true, "name", "description", "address", "careers"))
	UpdateBootcamp = MustCompile(object(bootcampProps, false))

	CreateCourse = MustCompile(object(courseProps, true, "title", "description", "weeks", "tuition", "minimumSkill"))
	UpdateCourse = MustCompile(object(courseProps, false))

	CreateReview = MustCompile(object(reviewProps, true, "title", "text", "rating"))
	UpdateReview = MustCompile(object(reviewProps, false))
)
