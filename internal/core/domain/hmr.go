package domain

// HMR message types sent from the server to clients.
const (
	HMRUpdate = "update"
	HMRReload = "reload"
	HMRError  = "error"
	HMRAck    = "ack"
)

// ModuleUpdate carries the new factory of one module.
type ModuleUpdate struct {
	ID   string            `json:"id"`
	Code string            `json:"code"`
	Deps map[string]string `json:"deps,omitempty"`
}

// HMRMessage is one frame on the hot update channel.
type HMRMessage struct {
	Type        string         `json:"type"`
	Generation  int            `json:"generation"`
	Updates     []ModuleUpdate `json:"updates,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}
