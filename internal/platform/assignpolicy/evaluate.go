package assignpolicy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Context struct {
	Action    string            `json:"action"`
	Actor     ActorContext      `json:"actor"`
	Employee  EmployeeContext   `json:"employee"`
	Equipment EquipmentContext  `json:"equipment"`
	Labels    map[string]string `json:"labels,omitempty"`
	Meta      map[string]any    `json:"meta,omitempty"`
}

type ActorContext struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

type EmployeeContext struct {
	EmployeeID  string `json:"employee_id,omitempty"`
	DNI         string `json:"dni,omitempty"`
	Area        string `json:"area,omitempty"`
	Cargo       string `json:"cargo,omitempty"`
	Status      string `json:"status,omitempty"`
	ActiveCount int    `json:"active_count"`
}

type EquipmentContext struct {
	EquipmentID string `json:"equipment_id,omitempty"`
	Serial      string `json:"serial,omitempty"`
	Type        string `json:"type,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Status      string `json:"status,omitempty"`
	AgeYears    int    `json:"age_years"`
}

type Decision struct {
	Effect      string `json:"effect"`
	RuleID      string `json:"rule_id,omitempty"`
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func Evaluate(spec Spec, ctx Context) (Decision, error) {
	if err := spec.Validate(); err != nil {
		return Decision{}, err
	}
	for _, rule := range spec.Rules {
		if ruleMatches(rule, ctx) {
			return Decision{
				Effect:      normalizeEffect(rule.Effect),
				RuleID:      strings.TrimSpace(rule.ID),
				Description: strings.TrimSpace(rule.Description),
				Reason:      "rule_match",
			}, nil
		}
	}

	defaultEffect := normalizeEffect(spec.DefaultEffect)
	if defaultEffect == "" {
		defaultEffect = EffectAllow
	}
	return Decision{
		Effect: defaultEffect,
		Reason: "default",
	}, nil
}

func ruleMatches(rule Rule, ctx Context) bool {
	all := rule.When.All
	any := rule.When.Any

	if len(all) > 0 {
		for _, cond := range all {
			if !conditionMatches(cond, ctx) {
				return false
			}
		}
	}
	if len(any) > 0 {
		found := false
		for _, cond := range any {
			if conditionMatches(cond, ctx) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func conditionMatches(cond Condition, ctx Context) bool {
	field := strings.TrimSpace(cond.Field)
	value, ok := ctx.Field(field)
	if !ok {
		return false
	}
	op := strings.ToLower(strings.TrimSpace(cond.Op))
	switch op {
	case "exists":
		return ok
	case "eq":
		return compareEqual(value, cond.Value)
	case "neq":
		return !compareEqual(value, cond.Value)
	case "in":
		return compareIn(value, cond.Values)
	case "not_in":
		return !compareIn(value, cond.Values)
	case "contains":
		return compareContains(value, cond.Value)
	case "not_contains":
		return !compareContains(value, cond.Value)
	case "matches":
		return compareRegex(value, cond.Value)
	case "gt", "gte", "lt", "lte":
		return compareNumber(value, cond.Value, op)
	default:
		return false
	}
}

func (c Context) Field(name string) (any, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}
	switch key {
	case "action":
		return c.Action, strings.TrimSpace(c.Action) != ""
	case "user.subject", "actor.subject", "subject":
		return c.Actor.Subject, strings.TrimSpace(c.Actor.Subject) != ""
	case "user.email", "actor.email", "email":
		return c.Actor.Email, strings.TrimSpace(c.Actor.Email) != ""
	case "user.roles", "actor.roles", "roles", "role":
		if len(c.Actor.Roles) == 0 {
			return c.Actor.Roles, false
		}
		return c.Actor.Roles, true
	case "employee.id", "employee.employee_id", "employee_id":
		return c.Employee.EmployeeID, strings.TrimSpace(c.Employee.EmployeeID) != ""
	case "employee.dni":
		return c.Employee.DNI, strings.TrimSpace(c.Employee.DNI) != ""
	case "employee.area":
		return c.Employee.Area, strings.TrimSpace(c.Employee.Area) != ""
	case "employee.cargo":
		return c.Employee.Cargo, strings.TrimSpace(c.Employee.Cargo) != ""
	case "employee.status":
		return c.Employee.Status, strings.TrimSpace(c.Employee.Status) != ""
	case "employee.active_count":
		return c.Employee.ActiveCount, true
	case "equipment.id", "equipment.equipment_id", "equipment_id":
		return c.Equipment.EquipmentID, strings.TrimSpace(c.Equipment.EquipmentID) != ""
	case "equipment.serial":
		return c.Equipment.Serial, strings.TrimSpace(c.Equipment.Serial) != ""
	case "equipment.type":
		return c.Equipment.Type, strings.TrimSpace(c.Equipment.Type) != ""
	case "equipment.brand":
		return c.Equipment.Brand, strings.TrimSpace(c.Equipment.Brand) != ""
	case "equipment.status":
		return c.Equipment.Status, strings.TrimSpace(c.Equipment.Status) != ""
	case "equipment.age_years":
		return c.Equipment.AgeYears, true
	}
	if strings.HasPrefix(key, "labels.") {
		value, ok := resolveStringMapPath(c.Labels, strings.TrimPrefix(key, "labels."))
		return value, ok
	}
	if strings.HasPrefix(key, "meta.") {
		value, ok := resolveMapPath(c.Meta, strings.TrimPrefix(key, "meta."))
		return value, ok
	}
	return nil, false
}

func resolveStringMapPath(values map[string]string, path string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	key := strings.TrimSpace(path)
	if key == "" {
		return "", false
	}
	value, ok := values[key]
	return value, ok
}

func resolveMapPath(root map[string]any, path string) (any, bool) {
	if len(root) == 0 {
		return nil, false
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = root
	for _, part := range parts {
		key := strings.TrimSpace(part)
		if key == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			index, err := strconv.Atoi(key)
			if err != nil || index < 0 || index >= len(typed) {
				return nil, false
			}
			current = typed[index]
		default:
			return nil, false
		}
	}
	return current, true
}

func compareEqual(value any, target string) bool {
	target = normalizeString(target)
	switch typed := value.(type) {
	case string:
		return normalizeString(typed) == target
	case []string:
		for _, item := range typed {
			if normalizeString(item) == target {
				return true
			}
		}
		return false
	case []any:
		for _, item := range typed {
			if normalizeString(fmt.Sprint(item)) == target {
				return true
			}
		}
		return false
	default:
		return normalizeString(fmt.Sprint(value)) == target
	}
}

func compareIn(value any, targets []string) bool {
	if len(targets) == 0 {
		return false
	}
	normalized := make([]string, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		val := normalizeString(t)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		normalized = append(normalized, val)
	}
	if len(normalized) == 0 {
		return false
	}

	switch typed := value.(type) {
	case string:
		return sliceContains(normalized, normalizeString(typed))
	case []string:
		for _, item := range typed {
			if sliceContains(normalized, normalizeString(item)) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range typed {
			if sliceContains(normalized, normalizeString(fmt.Sprint(item))) {
				return true
			}
		}
		return false
	default:
		return sliceContains(normalized, normalizeString(fmt.Sprint(value)))
	}
}

func compareContains(value any, target string) bool {
	target = normalizeString(target)
	if target == "" {
		return false
	}
	switch typed := value.(type) {
	case string:
		return strings.Contains(normalizeString(typed), target)
	case []string:
		for _, item := range typed {
			if normalizeString(item) == target {
				return true
			}
		}
		return false
	case []any:
		for _, item := range typed {
			if normalizeString(fmt.Sprint(item)) == target {
				return true
			}
		}
		return false
	default:
		return strings.Contains(normalizeString(fmt.Sprint(value)), target)
	}
}

func compareRegex(value any, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	switch typed := value.(type) {
	case string:
		return re.MatchString(typed)
	case []string:
		for _, item := range typed {
			if re.MatchString(item) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range typed {
			if re.MatchString(fmt.Sprint(item)) {
				return true
			}
		}
		return false
	default:
		return re.MatchString(fmt.Sprint(value))
	}
}

func compareNumber(value any, target string, op string) bool {
	left, ok := toFloat64(value)
	if !ok {
		return false
	}
	right, ok := toFloat64(target)
	if !ok {
		return false
	}
	switch op {
	case "gt":
		return left > right
	case "gte":
		return left >= right
	case "lt":
		return left < right
	case "lte":
		return left <= right
	default:
		return false
	}
}

func toFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case string:
		return parseFloat(typed)
	default:
		return parseFloat(fmt.Sprint(typed))
	}
}

func parseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func sliceContains(values []string, target string) bool {
	for _, item := range values {
		if item == target {
			return true
		}
	}
	return false
}

func normalizeEffect(effect string) string {
	effect = strings.ToLower(strings.TrimSpace(effect))
	switch effect {
	case EffectAllow, EffectDeny, EffectRequireApproval:
		return effect
	default:
		return EffectDefault
	}
}

func normalizeString(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
