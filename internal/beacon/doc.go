// Package beacon decodes SwampSat II beacon frames.
//
// Hex text is normalized into a frame, the frame length selects one of the
// static field schemas, and the schema drives a single generic decoder.
// Image downlinks bypass the schemas: each frame contributes its payload
// range to a caller-owned ImageAccumulator, in the order supplied.
package beacon
