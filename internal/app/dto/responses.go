package dto

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// AuthResponse carries a signed token after register or login.
type AuthResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// TrackClanResponse reports the outcome of a track request.
type TrackClanResponse struct {
	Message         string `json:"message"`
	ClanTag         string `json:"clan_tag"`
	ClanName        string `json:"clan_name"`
	TrackingStarted string `json:"tracking_started"`
	SnapshotCreated bool   `json:"snapshot_created"`
}

// TrackingStatusResponse reports whether a clan is tracked.
type TrackingStatusResponse struct {
	IsTracked     bool   `json:"is_tracked"`
	TrackingSince string `json:"tracking_since,omitempty"`
	ClanName      string `json:"clan_name,omitempty"`
}

// SnapshotResponse reports the outcome of a snapshot trigger.
type SnapshotResponse struct {
	Message string `json:"message"`
	Created bool   `json:"created"`
	ClanTag string `json:"clan_tag"`
	Date    string `json:"date"`
}

// MessageResponse is a bare informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports backing store connectivity.
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Cache    string `json:"cache"`
	Database string `json:"database"`
}
