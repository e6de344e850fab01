package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/imamik/l2net/internal/platform/s3"
)

const defaultSnapshotRegion = "us-east-1"

// Snapshot configures where l2netctl export uploads inventory snapshots.
// Any S3-compatible object storage works.
type Snapshot struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	// PathStyle addresses buckets as endpoint/bucket instead of bucket.endpoint.
	PathStyle bool `json:"pathStyle"`
}

// applyEnv overrides snapshot settings from environment variables.
//
// Environment Variables:
//   - L2NET_SNAPSHOT_ENDPOINT, L2NET_SNAPSHOT_REGION (default: us-east-1)
//   - L2NET_SNAPSHOT_BUCKET, L2NET_SNAPSHOT_PREFIX
//   - L2NET_SNAPSHOT_ACCESS_KEY, L2NET_SNAPSHOT_SECRET_KEY
func (s *Snapshot) applyEnv() {
	s.Endpoint = parseString(s.Endpoint, "L2NET_SNAPSHOT_ENDPOINT")
	s.Region = parseString(s.Region, "L2NET_SNAPSHOT_REGION")
	s.Bucket = parseString(s.Bucket, "L2NET_SNAPSHOT_BUCKET")
	s.Prefix = parseString(s.Prefix, "L2NET_SNAPSHOT_PREFIX")
	s.AccessKey = parseString(s.AccessKey, "L2NET_SNAPSHOT_ACCESS_KEY")
	s.SecretKey = parseString(s.SecretKey, "L2NET_SNAPSHOT_SECRET_KEY")
}

// Validate checks that an upload target is fully described.
func (s Snapshot) Validate() error {
	var errs []error
	if s.Endpoint == "" {
		errs = append(errs, errors.New("snapshot endpoint is required (L2NET_SNAPSHOT_ENDPOINT)"))
	} else if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid snapshot endpoint %q", s.Endpoint))
	}
	if s.Bucket == "" {
		errs = append(errs, errors.New("snapshot bucket is required (L2NET_SNAPSHOT_BUCKET)"))
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		errs = append(errs, errors.New("snapshot credentials are required (L2NET_SNAPSHOT_ACCESS_KEY, L2NET_SNAPSHOT_SECRET_KEY)"))
	}
	return errors.Join(errs...)
}

// ObjectStorageConfig returns the settings for the snapshot storage client.
func (c *Operator) ObjectStorageConfig() s3.Config {
	return s3.Config{
		Endpoint:  c.Snapshot.Endpoint,
		Region:    c.Snapshot.Region,
		AccessKey: c.Snapshot.AccessKey,
		SecretKey: c.Snapshot.SecretKey,
		PathStyle: c.Snapshot.PathStyle,
	}
}
