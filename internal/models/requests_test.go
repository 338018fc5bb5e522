package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddBusRequest_ToBus(t *testing.T) {
	tests := []struct {
		name     string
		req      AddBusRequest
		expected Bus
	}{
		{
			name: "defaults status and omits location",
			req:  AddBusRequest{BusName: "42", Start: "A", End: "B", Time: "08:00 AM"},
			expected: Bus{
				BusName: "42", Start: "A", End: "B", Time: "08:00 AM",
				Status: DefaultStatus,
			},
		},
		{
			name: "keeps explicit status and location",
			req: AddBusRequest{
				BusName: "7", Start: "Depot", End: "Harbour", Time: "06:15 PM",
				Status:   "Delayed",
				Location: &Location{Lat: 12.9, Lng: 77.6},
			},
			expected: Bus{
				BusName: "7", Start: "Depot", End: "Harbour", Time: "06:15 PM",
				Status:   "Delayed",
				Location: &Location{Lat: 12.9, Lng: 77.6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.ToBus())
		})
	}
}
