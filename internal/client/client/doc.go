// Package client is the transport collaborator of the delivery pipeline.
//
// Transport is split by concern so each pipeline stage depends only on what
// it calls: BlobTransport (upload slots and ciphertext PUT/GET),
// DirectoryTransport (contact discovery) and MessageTransport (envelope
// delivery). GRPCClient implements all of them: control calls go to the
// relay over gRPC, ciphertext moves over HTTP to presigned URLs.
//
// Errors are mapped to the common taxonomy: a gRPC NotFound becomes a
// *common.NotFoundError, everything network related a
// *common.TransportError, which wraps common.ErrUnauthorized or
// common.ErrUnavailable when the status says so.
//
// The package also bootstraps the local SQLite database (InitDatabase,
// RunMigrations).
package client
