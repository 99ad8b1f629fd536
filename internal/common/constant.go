// Package common contains shared constants and sentinel errors used across
// courier components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// NotFoundCode is the well-known code attached to NotFoundError. Callers
// persist it to tell "definitely not registered" apart from transient
// failures.
const NotFoundCode = 777404

// AttachmentKeySize is the length of a per-attachment AES-256 key.
const AttachmentKeySize = 32
