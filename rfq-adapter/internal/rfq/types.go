package rfq

import "strconv"

// Unit is the measurement unit of a requested line item.
type Unit string

const (
	UnitUnits   Unit = "units"
	UnitSets    Unit = "sets"
	UnitPieces  Unit = "pieces"
	UnitKg      Unit = "kg"
	UnitG       Unit = "g"
	UnitTonnes  Unit = "tonnes"
	UnitLiters  Unit = "liters"
	UnitMl      Unit = "ml"
	UnitBarrels Unit = "barrels"
	UnitMeters  Unit = "meters"
	UnitCm      Unit = "cm"
	UnitMm      Unit = "mm"
	UnitFeet    Unit = "feet"
	UnitInches  Unit = "inches"
	UnitPacks   Unit = "packs"
	UnitBoxes   Unit = "boxes"
	UnitRolls   Unit = "rolls"
	UnitCans    Unit = "cans"
	UnitBottles Unit = "bottles"
)

var units = []Unit{
	UnitUnits, UnitSets, UnitPieces, UnitKg, UnitG, UnitTonnes, UnitLiters, UnitMl,
	UnitBarrels, UnitMeters, UnitCm, UnitMm, UnitFeet, UnitInches, UnitPacks,
	UnitBoxes, UnitRolls, UnitCans, UnitBottles,
}

// Units returns the accepted units in their canonical order.
func Units() []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// Valid reports whether u is one of the accepted units.
func (u Unit) Valid() bool {
	for _, v := range units {
		if u == v {
			return true
		}
	}
	return false
}

// RFQItem is a requested line item.
type RFQItem struct {
	Name      string   `json:"name" validate:"required"`
	Quantity  *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Unit      *Unit    `json:"unit,omitempty" validate:"omitempty,rfq_unit"`
	Essential *bool    `json:"essential,omitempty"`
	SizeSpec  *string  `json:"size_spec,omitempty"`
	Note      *string  `json:"note,omitempty"`

	// Deprecated: Qty is the legacy free-form quantity kept so older payloads
	// still decode. It is independent of Quantity/Unit and never set by new code.
	Qty *string `json:"qty,omitempty"`
}

// Terms holds the optional commercial terms of an RFQ.
type Terms struct {
	Delivery *string `json:"delivery,omitempty"`
	Payment  *string `json:"payment,omitempty"`
}

// RFQCreatePayload carries the client-owned fields of an RFQ.
// id, user_id and created_at are assigned by the server and have no place here.
type RFQCreatePayload struct {
	Title         string    `json:"title" validate:"required"`
	BuyerCompany  string    `json:"buyer_company" validate:"required"`
	Port          string    `json:"port" validate:"required"`
	DeadlineDays  int       `json:"deadline_days" validate:"gte=1"`
	BudgetMin     *float64  `json:"budget_min,omitempty" validate:"omitempty,gte=0"`
	BudgetMax     *float64  `json:"budget_max,omitempty" validate:"omitempty,gte=0"`
	Tags          []string  `json:"tags,omitempty" validate:"omitempty,dive,required"`
	RequiredItems []RFQItem `json:"required_items" validate:"dive"`
	Terms         *Terms    `json:"terms,omitempty"`
}

// withItems returns p with a non-nil RequiredItems, so the body carries
// "required_items": [] rather than null.
func (p RFQCreatePayload) withItems() RFQCreatePayload {
	if p.RequiredItems == nil {
		p.RequiredItems = []RFQItem{}
	}
	return p
}

// RFQ is a request-for-quotation record as returned by the server.
type RFQ struct {
	ID     int64  `json:"id"`
	UserID *int64 `json:"user_id,omitempty"`
	RFQCreatePayload
	CreatedAt string `json:"created_at"`
}

// Ref returns the route identifier of r.
func (r RFQ) Ref() ID {
	return IntID(r.ID)
}

// ID identifies an RFQ in a route. String and numeric ids are interchangeable:
// the id is interpolated into the path as-is.
type ID string

// IntID converts a numeric RFQ id into a route identifier.
func IntID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}
