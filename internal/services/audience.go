package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/fitlink/fitlink-backend/internal/types"
)

// AudienceFilter is the structured predicate stored on a template. Every rule
// must match for a student to qualify; an empty filter matches everyone.
type AudienceFilter struct {
	Rules []AudienceRule `json:"rules,omitempty"`
}

type AudienceRule struct {
	Field string   `json:"field"`
	Op    string   `json:"op"`
	Value string   `json:"value,omitempty"`
	In    []string `json:"in,omitempty"`
}

const (
	AudienceOpEquals    = "eq"
	AudienceOpNotEquals = "neq"
	AudienceOpContains  = "contains"
	AudienceOpIn        = "in"
)

func ParseAudienceFilter(raw datatypes.JSON) (*AudienceFilter, error) {
	if len(raw) == 0 {
		return &AudienceFilter{}, nil
	}
	var filter AudienceFilter
	if err := json.Unmarshal(raw, &filter); err != nil {
		return nil, ValidationError(fmt.Sprintf("invalid audience filter: %v", err))
	}
	for i, rule := range filter.Rules {
		if strings.TrimSpace(rule.Field) == "" {
			return nil, ValidationError(fmt.Sprintf("audience rule %d: field required", i))
		}
		switch rule.Op {
		case AudienceOpEquals, AudienceOpNotEquals, AudienceOpContains, AudienceOpIn:
		default:
			return nil, ValidationError(fmt.Sprintf("audience rule %d: unknown op %q", i, rule.Op))
		}
	}
	return &filter, nil
}

func (f *AudienceFilter) Matches(student *types.Student) bool {
	if f == nil || len(f.Rules) == 0 {
		return true
	}
	if student == nil {
		return false
	}
	for _, rule := range f.Rules {
		if !rule.matches(student) {
			return false
		}
	}
	return true
}

func (r AudienceRule) matches(student *types.Student) bool {
	actual, ok := studentField(student, r.Field)
	if !ok {
		return false
	}
	switch r.Op {
	case AudienceOpEquals:
		return strings.EqualFold(actual, r.Value)
	case AudienceOpNotEquals:
		return !strings.EqualFold(actual, r.Value)
	case AudienceOpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(r.Value))
	case AudienceOpIn:
		for _, candidate := range r.In {
			if strings.EqualFold(actual, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

// studentField resolves a rule field against the student row, falling back to
// the free-form attributes document for anything not modeled as a column.
func studentField(student *types.Student, field string) (string, bool) {
	switch field {
	case "name":
		return student.Name, true
	case "first_name":
		return student.FirstName(), true
	case "plan_name":
		return student.PlanName, true
	case "phone":
		return student.Phone, true
	case "email":
		return student.Email, true
	}
	if len(student.Attributes) == 0 {
		return "", false
	}
	var attrs map[string]any
	if err := json.Unmarshal(student.Attributes, &attrs); err != nil {
		return "", false
	}
	val, ok := attrs[field]
	if !ok {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}
