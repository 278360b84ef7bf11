package orders

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
)

func TestOrderedLinesSkipsLinesWithoutProductRef(t *testing.T) {
	order := Order{
		Ref: "ORD-1",
		Lines: []Line{
			{ProductRef: "P1", Quantity: 3},
			{ProductRef: "", Quantity: 2},
			{ProductRef: "P2", Quantity: 1},
		},
	}
	require.Equal(t, []fulfillment.OrderedLine{
		{ProductRef: "P1", Quantity: 3},
		{ProductRef: "P2", Quantity: 1},
	}, order.OrderedLines())
}
