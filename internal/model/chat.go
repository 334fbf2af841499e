package model

// ChatRequest is the inbound chat payload. Both fields are optional.
type ChatRequest struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// ChatReply is returned for every turn, including failed ones.
type ChatReply struct {
	Reply string `json:"reply"`
	Step  Step   `json:"step"`
	Genre string `json:"genre,omitempty"`
}
