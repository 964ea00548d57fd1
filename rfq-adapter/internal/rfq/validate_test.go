package rfq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePayload_Valid(t *testing.T) {
	p := steelRodsPayload()
	p.BudgetMin = Ptr(100.0)
	p.BudgetMax = Ptr(250.0)
	p.Tags = []string{"steel", "urgent"}
	p.Terms = &Terms{Delivery: Ptr("DAP"), Payment: Ptr("30 days")}

	assert.NoError(t, ValidatePayload(p))
}

func TestValidatePayload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *RFQCreatePayload)
		field  string
	}{
		{"missing title", func(p *RFQCreatePayload) { p.Title = "" }, "title"},
		{"missing port", func(p *RFQCreatePayload) { p.Port = "" }, "port"},
		{"zero deadline", func(p *RFQCreatePayload) { p.DeadlineDays = 0 }, "deadline_days"},
		{"unknown unit", func(p *RFQCreatePayload) { p.RequiredItems[0].Unit = Ptr(Unit("pallets")) }, "required_items[0].unit"},
		{"item without name", func(p *RFQCreatePayload) { p.RequiredItems[0].Name = "" }, "required_items[0].name"},
		{"negative quantity", func(p *RFQCreatePayload) { p.RequiredItems[0].Quantity = Ptr(-1.0) }, "required_items[0].quantity"},
		{"blank tag", func(p *RFQCreatePayload) { p.Tags = []string{""} }, "tags[0]"},
		{"budget inverted", func(p *RFQCreatePayload) {
			p.BudgetMin = Ptr(500.0)
			p.BudgetMax = Ptr(100.0)
		}, "budget_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := steelRodsPayload()
			tt.mutate(&p)

			err := ValidatePayload(p)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidatePayload_ItemOptionalsMayBeAbsent(t *testing.T) {
	p := steelRodsPayload()
	p.RequiredItems = []RFQItem{{Name: "Gloves"}}

	assert.NoError(t, ValidatePayload(p))
}
