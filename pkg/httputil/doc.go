// Package httputil holds small HTTP helpers shared by the metadata clients.
//
// [Retry] re-runs an operation with exponential backoff when it fails with a
// [RetryableError]. The version catalog uses it for manifest and descriptor
// requests. Artifact downloads are never retried: a failed artifact is
// reported and fetched again on the next launch.
package httputil
