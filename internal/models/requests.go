package models

// SearchQuery is the passenger search input. Times are 24-hour "HH:MM".
type SearchQuery struct {
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	TimeFrom string `json:"time_from" validate:"required"`
	TimeTo   string `json:"time_to" validate:"required"`
}

// AddBusRequest is the add-bus payload. Field order is the order missing fields are reported in.
type AddBusRequest struct {
	BusName  string    `json:"busName" validate:"required"`
	Start    string    `json:"start" validate:"required"`
	End      string    `json:"end" validate:"required"`
	Time     string    `json:"time" validate:"required"`
	Status   string    `json:"status"`
	Location *Location `json:"location"`
}

// ToBus applies defaults and builds the document to insert.
func (r AddBusRequest) ToBus() Bus {
	status := r.Status
	if status == "" {
		status = DefaultStatus
	}
	return Bus{
		BusName:  r.BusName,
		Start:    r.Start,
		End:      r.End,
		Time:     r.Time,
		Status:   status,
		Location: r.Location,
	}
}

// LoginRequest represents a conductor login form
type LoginRequest struct {
	Username string
	Password string
}
