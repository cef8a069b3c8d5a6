// Package policy decides which roles may perform which actions on which resources
package policy

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/pkg/errors"
)

// Resources
const (
	ResBootcamp = "bootcamp"
	ResCourse   = "course"
	ResReview   = "review"
	ResUser     = "user"
	ResAccount  = "account"
)

// Actions
const (
	ActCreate = "create"
	ActUpdate = "update"
	ActDelete = "delete"
	ActManage = "manage"
	ActRead   = "read"
)

// Scopes of a rule: "any" allows the action on every entity, "own" only on entities the subject owns
const (
	scopeAny = "any"
	scopeOwn = "own"
)

const modelText = `
[request_definition]
r = role, owned, obj, act

[policy_definition]
p = role, obj, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && r.obj == p.obj && r.act == p.act && (p.scope == "any" || r.owned == "true")
`

var rules = [][]string{
	{models.RolePublisher, ResBootcamp, ActCreate, scopeAny},
	{models.RolePublisher, ResBootcamp, ActUpdate, scopeOwn},
	{models.RolePublisher, ResBootcamp, ActDelete, scopeOwn},
	// Courses are created inside a bootcamp - the owner is the bootcamp's owner
	{models.RolePublisher, ResCourse, ActCreate, scopeOwn},
	{models.RolePublisher, ResCourse, ActUpdate, scopeOwn},
	{models.RolePublisher, ResCourse, ActDelete, scopeOwn},
	{models.RoleUser, ResReview, ActCreate, scopeAny},
	{models.RoleUser, ResReview, ActUpdate, scopeOwn},
	{models.RoleUser, ResReview, ActDelete, scopeOwn},
	{models.RolePublisher, ResAccount, ActRead, scopeAny},
}

// adminResources are the resources the administrator can do everything with
var adminResources = map[string][]string{
	ResBootcamp: {ActCreate, ActUpdate, ActDelete},
	ResCourse:   {ActCreate, ActUpdate, ActDelete},
	ResReview:   {ActCreate, ActUpdate, ActDelete},
	ResUser:     {ActManage},
	ResAccount:  {ActRead},
}

// Subject is the acting user
type Subject struct {
	ID   string
	Role string
}

// Enforcer evaluates the access rules
type Enforcer struct {
	e *casbin.Enforcer
}

// New creates an enforcer loaded with the built-in rules
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, errors.Wrap(err, "New: illegal policy model")
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, errors.Wrap(err, "New: cannot create enforcer")
	}
	all := append([][]string{}, rules...)
	for res, acts := range adminResources {
		for _, act := range acts {
			all = append(all, []string{models.RoleAdmin, res, act, scopeAny})
		}
	}
	if _, err := e.AddPolicies(all); err != nil {
		return nil, errors.Wrap(err, "New: cannot load rules")
	}
	return &Enforcer{e: e}, nil
}

// Can checks if the subject may perform the action on a resource owned by ownerID. An empty ownerID means the
// resource has no owner, yet (e.g. on creation).
func (p *Enforcer) Can(sub Subject, ownerID, resource, action string) bool {
	if sub.Role == "" {
		return false
	}
	owned := "false"
	if sub.ID != "" && sub.ID == ownerID {
		owned = "true"
	}
	ok, err := p.e.Enforce(sub.Role, owned, resource, action)
	return err == nil && ok
}

// RoleCan checks if the role is allowed to perform the action on at least some resources of the given type
func (p *Enforcer) RoleCan(role, resource, action string) bool {
	if role == "" {
		return false
	}
	ok, err := p.e.Enforce(role, "true", resource, action)
	return err == nil && ok
}
