// Package s3 stores inventory snapshots in S3-compatible object storage.
package s3
