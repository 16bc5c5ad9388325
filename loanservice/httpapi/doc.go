// Package httpapi exposes the loan orchestrator over HTTP. It owns request
// decoding, the taxonomy-to-status mapping, and nothing else - all
// workflow logic lives in the feature slices.
package httpapi
