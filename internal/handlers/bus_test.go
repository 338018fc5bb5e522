package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/models"
)

func addBusRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/add_bus", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAddBus_Success(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Bus
	}{
		{
			name: "defaults status without location",
			body: `{"busName":"42","start":"A","end":"B","time":"08:00 AM"}`,
			want: models.Bus{BusName: "42", Start: "A", End: "B", Time: "08:00 AM", Status: models.DefaultStatus},
		},
		{
			name: "explicit status and location",
			body: `{"busName":"7","start":"A","end":"B","time":"06:15 PM","status":"Delayed","location":{"lat":1.5,"lng":2.5}}`,
			want: models.Bus{
				BusName: "7", Start: "A", End: "B", Time: "06:15 PM", Status: "Delayed",
				Location: &models.Location{Lat: 1.5, Lng: 2.5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			srv.buses.On("InsertBus", mock.Anything, tt.want).Return(nil)

			w := srv.serve(addBusRequest(tt.body))

			assert.Equal(t, http.StatusCreated, w.Code)
			assert.JSONEq(t, `{"message":"Bus added successfully"}`, w.Body.String())
			srv.buses.AssertExpectations(t)
		})
	}
}

func TestAddBus_UnparseableTimeIsWarned(t *testing.T) {
	srv := newTestServer(t)
	srv.buses.On("InsertBus", mock.Anything, mock.Anything).Return(nil)

	w := srv.serve(addBusRequest(`{"busName":"42","start":"A","end":"B","time":"8 o'clock"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	var warned bool
	for _, entry := range srv.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["time"] == "8 o'clock" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestAddBus_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid json", `{"busName":`, "Invalid JSON"},
		{"wrong type", `{"busName":42}`, "Invalid JSON"},
		{"empty body", ``, "Invalid JSON"},
		{"missing everything", `{}`, "Missing field: busName"},
		{"missing start", `{"busName":"42","end":"B","time":"08:00 AM"}`, "Missing field: start"},
		{"empty end", `{"busName":"42","start":"A","end":"","time":"08:00 AM"}`, "Missing field: end"},
		{"missing time", `{"busName":"42","start":"A","end":"B"}`, "Missing field: time"},
		{"first missing wins", `{"busName":"42","time":"08:00 AM"}`, "Missing field: start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			w := srv.serve(addBusRequest(tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, w.Body.String())
			srv.buses.AssertNotCalled(t, "InsertBus", mock.Anything, mock.Anything)
		})
	}
}

func TestAddBus_InsertFails(t *testing.T) {
	srv := newTestServer(t)
	srv.buses.On("InsertBus", mock.Anything, mock.Anything).Return(errors.New("not primary"))

	w := srv.serve(addBusRequest(`{"busName":"42","start":"A","end":"B","time":"08:00 AM"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to add bus"}`, w.Body.String())
}

func TestAddBus_AdminKey(t *testing.T) {
	hash, err := auth.HashAdminKey("s3cret")
	require.NoError(t, err)
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Admin.KeyHash = hash
	})
	srv.buses.On("InsertBus", mock.Anything, mock.Anything).Return(nil)
	body := `{"busName":"42","start":"A","end":"B","time":"08:00 AM"}`

	w := srv.serve(addBusRequest(body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid admin key"}`, w.Body.String())
	srv.buses.AssertNotCalled(t, "InsertBus", mock.Anything, mock.Anything)

	req := addBusRequest(body)
	req.Header.Set("X-Admin-Key", "s3cret")
	w = srv.serve(req)
	assert.Equal(t, http.StatusCreated, w.Code)
	srv.buses.AssertNumberOfCalls(t, "InsertBus", 1)
}
