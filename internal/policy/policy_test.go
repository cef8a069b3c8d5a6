package policy

import (
	"testing"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCan(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	publisher := Subject{ID: "p1", Role: models.RolePublisher}
	user := Subject{ID: "u1", Role: models.RoleUser}
	admin := Subject{ID: "a1", Role: models.RoleAdmin}

	tests := []struct {
		name     string
		sub      Subject
		owner    string
		resource string
		action   string
		allowed  bool
	}{
		{"publisher creates bootcamp", publisher, "", ResBootcamp, ActCreate, true},
		{"user creates bootcamp", user, "", ResBootcamp, ActCreate, false},
		{"publisher updates own bootcamp", publisher, "p1", ResBootcamp, ActUpdate, true},
		{"publisher updates foreign bootcamp", publisher, "p2", ResBootcamp, ActUpdate, false},
		{"admin updates foreign bootcamp", admin, "p2", ResBootcamp, ActUpdate, true},
		{"publisher adds course to own bootcamp", publisher, "p1", ResCourse, ActCreate, true},
		{"publisher adds course to foreign bootcamp", publisher, "p2", ResCourse, ActCreate, false},
		{"user writes review", user, "", ResReview, ActCreate, true},
		{"publisher writes review", publisher, "", ResReview, ActCreate, false},
		{"user deletes own review", user, "u1", ResReview, ActDelete, true},
		{"user deletes foreign review", user, "u2", ResReview, ActDelete, false},
		{"admin manages users", admin, "", ResUser, ActManage, true},
		{"publisher manages users", publisher, "", ResUser, ActManage, false},
		{"anonymous", Subject{}, "", ResReview, ActCreate, false},
		{"empty owner is not owned", Subject{Role: models.RoleUser}, "", ResReview, ActUpdate, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, p.Can(tc.sub, tc.owner, tc.resource, tc.action))
		})
	}
}

func TestRoleCan(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	assert.True(t, p.RoleCan(models.RolePublisher, ResCourse, ActUpdate))
	assert.False(t, p.RoleCan(models.RoleUser, ResCourse, ActUpdate))
	assert.True(t, p.RoleCan(models.RoleAdmin, ResAccount, ActRead))
	assert.False(t, p.RoleCan(models.RoleUser, ResAccount, ActRead))
}
