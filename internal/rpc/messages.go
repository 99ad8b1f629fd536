package rpc

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterAccountRequest struct {
	Identifier string `json:"identifier"`
	Relay      string `json:"relay,omitempty"`
}

type RegisterAccountResponse struct {
	AccountID   string `json:"account_id"`
	AccessToken string `json:"access_token"`
}

type RequestUploadSlotRequest struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type RequestUploadSlotResponse struct {
	RemoteID uint64            `json:"remote_id"`
	URL      string            `json:"url"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type GetAttachmentURLRequest struct {
	RemoteID uint64 `json:"remote_id"`
	Relay    string `json:"relay,omitempty"`
}

type GetAttachmentURLResponse struct {
	URL string `json:"url"`
}

type DeliverEnvelopeRequest struct {
	Recipient string `json:"recipient"`
	Payload   []byte `json:"payload"`
}

type DeliverEnvelopeResponse struct {
	EnvelopeID string `json:"envelope_id"`
}

type FetchEnvelopesRequest struct {
	Limit int `json:"limit,omitempty"`
}

type Envelope struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

type FetchEnvelopesResponse struct {
	Envelopes []Envelope `json:"envelopes"`
}

type LookupIdentifierRequest struct {
	Token string `json:"token"`
}

type LookupIdentifierResponse struct {
	Identifiers []string `json:"identifiers"`
}

type BatchIntersectRequest struct {
	Tokens []string `json:"tokens"`
}

type BatchIntersectResponse struct {
	// Matches holds registered tokens only.
	Matches map[string][]string `json:"matches"`
}
