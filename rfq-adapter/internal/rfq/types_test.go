package rfq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayload_OmitsServerOwnedFields(t *testing.T) {
	data, err := json.Marshal(steelRodsPayload())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, k := range []string{"id", "user_id", "created_at"} {
		assert.NotContains(t, raw, k)
	}
}

func TestCreatePayload_OptionalFieldsStayAbsent(t *testing.T) {
	p := RFQCreatePayload{Title: "t", BuyerCompany: "b", Port: "p", DeadlineDays: 1}
	data, err := json.Marshal(p.withItems())
	require.NoError(t, err)

	assert.JSONEq(t, `{"title":"t","buyer_company":"b","port":"p","deadline_days":1,"required_items":[]}`, string(data))
}

func TestUnit_Valid(t *testing.T) {
	assert.True(t, UnitTonnes.Valid())
	assert.True(t, Unit("bottles").Valid())
	assert.False(t, Unit("pallets").Valid())
	assert.False(t, Unit("").Valid())
	assert.Len(t, Units(), 19)
}

func TestUnits_ReturnsCopy(t *testing.T) {
	u := Units()
	u[0] = "changed"
	assert.Equal(t, UnitUnits, Units()[0])
}

func TestIntID(t *testing.T) {
	assert.Equal(t, ID("0"), IntID(0))
	assert.Equal(t, ID("9007199254740993"), IntID(9007199254740993))
}
