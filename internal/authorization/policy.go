package authorization

import (
	"slices"
	"strings"
)

type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleReceptionist Role = "Receptionist"
	RoleDoctor       Role = "Doctor"

	// RoleAny matches every authenticated role.
	RoleAny Role = "*"
)

const (
	ObjectBill            = "bill"
	ObjectPatient         = "patient"
	ObjectServiceTemplate = "service_template"
	ObjectAuditLog        = "audit_log"
)

const (
	ActionBillCreate          = "bill.create"
	ActionBillView            = "bill.view"
	ActionPatientView         = "patient.view"
	ActionServiceTemplateView = "service_template.view"
	ActionAuditLogView        = "audit_log.view"
)

// Rule grants one action on one object to a role.
type Rule struct {
	Role   Role
	Object string
	Action string
}

// policyTable is the only place role capabilities are declared. The casbin
// enforcer is seeded from it and the pure checks below read it directly.
var policyTable = []Rule{
	{RoleAdmin, ObjectBill, ActionBillCreate},
	{RoleReceptionist, ObjectBill, ActionBillCreate},
	{RoleAdmin, ObjectAuditLog, ActionAuditLogView},

	{RoleAny, ObjectBill, ActionBillView},
	{RoleAny, ObjectPatient, ActionPatientView},
	{RoleAny, ObjectServiceTemplate, ActionServiceTemplateView},
}

// Rules returns a copy of the policy table.
func Rules() []Rule {
	return slices.Clone(policyTable)
}

// Allowed reports whether role may perform action. Empty roles are never
// allowed anything.
func Allowed(role Role, action string) bool {
	if !role.Authenticated() {
		return false
	}
	for _, rule := range policyTable {
		if rule.Action != action {
			continue
		}
		if rule.Role == RoleAny || rule.Role.Is(role) {
			return true
		}
	}
	return false
}

func CanCreateBill(role Role) bool {
	return Allowed(role, ActionBillCreate)
}

func CanViewBill(role Role) bool {
	return Allowed(role, ActionBillView)
}

// Capabilities lists the actions role may perform, sorted.
func Capabilities(role Role) []string {
	out := []string{}
	for _, rule := range policyTable {
		if slices.Contains(out, rule.Action) {
			continue
		}
		if Allowed(role, rule.Action) {
			out = append(out, rule.Action)
		}
	}
	slices.Sort(out)
	return out
}

func (r Role) Authenticated() bool {
	return strings.TrimSpace(string(r)) != ""
}

// Is compares role names case-insensitively.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(strings.TrimSpace(string(r)), strings.TrimSpace(string(other)))
}

func (r Role) subject() string {
	if r == RoleAny {
		return "role:*"
	}
	return "role:" + strings.ToLower(strings.TrimSpace(string(r)))
}
