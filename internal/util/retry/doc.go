// Package retry waits for startup dependencies with exponential backoff.
//
// [Do] re-runs a probe until it succeeds, the attempt budget is spent or
// the context ends. The operator uses it to wait for the database before
// it starts watching; errors wrapped with [Permanent] stop the loop at once.
package retry
