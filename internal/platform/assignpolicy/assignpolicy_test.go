package assignpolicy

import "testing"

func TestSpecValidate(t *testing.T) {
	spec := Spec{
		Schema: SpecSchemaV1,
		Rules: []Rule{
			{
				ID:     "allow-admin",
				Effect: EffectAllow,
				When: ConditionGroup{
					Any: []Condition{
						{Field: "user.roles", Op: "in", Values: []string{"admin"}},
					},
				},
			},
		},
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := spec
	invalid.Schema = "bad"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestParseSpec_YAML(t *testing.T) {
	raw := []byte(`
schema: activos.assignment_policy.v1
default_effect: allow
rules:
  - id: deny-inactive-employee
    effect: deny
    when:
      all:
        - field: employee.status
          op: eq
          value: inactive
  - id: approve-many-devices
    effect: require_approval
    when:
      all:
        - field: employee.active_count
          op: gte
          value: "3"
`)
	spec, err := ParseSpec(raw)
	if err != nil {
		t.Fatalf("ParseSpec() err=%v", err)
	}
	if len(spec.Rules) != 2 {
		t.Fatalf("len(Rules)=%d, want 2", len(spec.Rules))
	}
}

func TestEvaluateRuleOrder(t *testing.T) {
	spec := Spec{
		Schema:        SpecSchemaV1,
		DefaultEffect: EffectDeny,
		Rules: []Rule{
			{
				ID:     "approve-many-devices",
				Effect: EffectRequireApproval,
				When: ConditionGroup{
					All: []Condition{
						{Field: "employee.active_count", Op: "gte", Value: "3"},
					},
				},
			},
			{
				ID:     "allow-admin",
				Effect: EffectAllow,
				When: ConditionGroup{
					Any: []Condition{
						{Field: "user.roles", Op: "in", Values: []string{"admin"}},
					},
				},
			},
		},
	}

	decision, err := Evaluate(spec, Context{
		Action:   "assign",
		Actor:    ActorContext{Subject: "alice", Roles: []string{"admin"}},
		Employee: EmployeeContext{EmployeeID: "e-1", Status: "active", ActiveCount: 4},
	})
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Fatalf("Effect=%s, want %s", decision.Effect, EffectRequireApproval)
	}
	if decision.RuleID != "approve-many-devices" {
		t.Fatalf("RuleID=%s, want approve-many-devices", decision.RuleID)
	}
}

func TestEvaluateDefaultEffect(t *testing.T) {
	spec := Spec{
		Schema:        SpecSchemaV1,
		DefaultEffect: EffectAllow,
		Rules: []Rule{
			{
				ID:     "deny-decommissioned",
				Effect: EffectDeny,
				When: ConditionGroup{
					All: []Condition{
						{Field: "equipment.status", Op: "eq", Value: "decommissioned"},
					},
				},
			},
		},
	}

	decision, err := Evaluate(spec, Context{
		Action:    "assign",
		Actor:     ActorContext{Subject: "bob", Roles: []string{"editor"}},
		Equipment: EquipmentContext{EquipmentID: "q-1", Status: "available"},
	})
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	if decision.Effect != EffectAllow {
		t.Fatalf("Effect=%s, want %s", decision.Effect, EffectAllow)
	}
	if decision.RuleID != "" {
		t.Fatalf("RuleID=%s, want empty", decision.RuleID)
	}
}

func TestEvaluateDenyRule(t *testing.T) {
	spec := Spec{
		Schema:        SpecSchemaV1,
		DefaultEffect: EffectAllow,
		Rules: []Rule{
			{
				ID:     "deny-inactive-employee",
				Effect: EffectDeny,
				When: ConditionGroup{
					All: []Condition{
						{Field: "employee.status", Op: "eq", Value: "inactive"},
					},
				},
			},
		},
	}

	decision, err := Evaluate(spec, Context{
		Action:   "assign",
		Actor:    ActorContext{Subject: "bob", Roles: []string{"editor"}},
		Employee: EmployeeContext{EmployeeID: "e-2", Status: "inactive"},
	})
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	if decision.Effect != EffectDeny {
		t.Fatalf("Effect=%s, want %s", decision.Effect, EffectDeny)
	}
	if decision.RuleID != "deny-inactive-employee" {
		t.Fatalf("RuleID=%s, want deny-inactive-employee", decision.RuleID)
	}
}
