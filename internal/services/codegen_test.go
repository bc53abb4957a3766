package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fitlink/fitlink-backend/internal/types"
)

func seedTemplates(repo *fakeTemplateRepo, orgID uuid.UUID, codes ...string) {
	for _, code := range codes {
		id := uuid.New()
		repo.templates[id] = &types.MessageTemplate{
			ID:             id,
			OrganizationID: orgID,
			Code:           code,
			Anchor:         types.AnchorSaleClose,
			MessageV1:      "Oi {{first_name}}",
			Active:         true,
		}
	}
}

func TestNextCode(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{name: "first code for empty org", codes: nil, want: "0001"},
		{name: "increments the max", codes: []string{"0001", "0002", "0005"}, want: "0006"},
		{name: "no gap filling", codes: []string{"0003"}, want: "0004"},
		{name: "unparseable codes are skipped", codes: []string{"abc", "0003", ""}, want: "0004"},
		{name: "zero padding past four digits", codes: []string{"9999"}, want: "10000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgID := uuid.New()
			repo := newFakeTemplateRepo()
			seedTemplates(repo, orgID, tt.codes...)

			svc := NewTemplateCodeService(testLogger(), repo)
			got, err := svc.NextCode(context.Background(), nil, orgID)
			if err != nil {
				t.Fatalf("NextCode() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("NextCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextCodeIsPerOrganization(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	repo := newFakeTemplateRepo()
	seedTemplates(repo, orgA, "0001", "0002", "0003")
	seedTemplates(repo, orgB, "0001")

	svc := NewTemplateCodeService(testLogger(), repo)

	gotA, err := svc.NextCode(context.Background(), nil, orgA)
	if err != nil {
		t.Fatalf("NextCode(orgA) error = %v", err)
	}
	if gotA != "0004" {
		t.Fatalf("NextCode(orgA) = %q, want 0004", gotA)
	}

	gotB, err := svc.NextCode(context.Background(), nil, orgB)
	if err != nil {
		t.Fatalf("NextCode(orgB) error = %v", err)
	}
	if gotB != "0002" {
		t.Fatalf("NextCode(orgB) = %q, want 0002", gotB)
	}
}

func TestNextCodeIsMonotonic(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeTemplateRepo()
	svc := NewTemplateCodeService(testLogger(), repo)

	want := []string{"0001", "0002", "0003"}
	for _, expected := range want {
		got, err := svc.NextCode(context.Background(), nil, orgID)
		if err != nil {
			t.Fatalf("NextCode() error = %v", err)
		}
		if got != expected {
			t.Fatalf("NextCode() = %q, want %q", got, expected)
		}
		seedTemplates(repo, orgID, got)
	}
}
