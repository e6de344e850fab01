package handlers

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/l2net/internal/config"
	"github.com/imamik/l2net/internal/platform/s3"
)

const snapshotContentType = "application/yaml"

// ObjectStore is the part of the object storage client used for snapshots.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]s3.Object, error)
}

var (
	newObjectStore = func(ctx context.Context, cfg *config.Operator) (ObjectStore, error) {
		return s3.NewClient(ctx, cfg.ObjectStorageConfig())
	}
	now = time.Now
)

// Snapshot is a point-in-time copy of the whole inventory.
type Snapshot struct {
	TakenAt    time.Time       `json:"takenAt" yaml:"takenAt"`
	Switches   []SwitchView    `json:"switches" yaml:"switches"`
	Interfaces []InterfaceView `json:"interfaces" yaml:"interfaces"`
	Networks   []NetworkView   `json:"networks" yaml:"networks"`
}

// Export writes an inventory snapshot as YAML to stdout, or uploads it to the
// configured bucket when upload is set.
func Export(ctx context.Context, configPath string, upload bool) error {
	return withInventory(configPath, func(cfg *config.Operator, inv Inventory) error {
		if upload {
			if err := cfg.Snapshot.Validate(); err != nil {
				return fmt.Errorf("snapshot configuration: %w", err)
			}
		}

		snap, err := takeSnapshot(ctx, inv)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}

		if !upload {
			_, err := stdout.Write(buf.Bytes())
			return err
		}

		store, err := newObjectStore(ctx, cfg)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx, cfg.Snapshot.Bucket); err != nil {
			return err
		}
		key := snapshotKey(cfg.Snapshot.Prefix, snap.TakenAt)
		if err := store.PutObject(ctx, cfg.Snapshot.Bucket, key, snapshotContentType, buf.Bytes()); err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "snapshot uploaded to s3://%s/%s\n", cfg.Snapshot.Bucket, key)
		return err
	})
}

// Snapshots lists uploaded snapshots, oldest first.
func Snapshots(ctx context.Context, configPath, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Snapshot.Validate(); err != nil {
		return fmt.Errorf("snapshot configuration: %w", err)
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	objects, err := store.ListObjects(ctx, cfg.Snapshot.Bucket, snapshotPrefix(cfg.Snapshot.Prefix))
	if err != nil {
		return err
	}

	tbl := &table{headers: []string{"KEY", "SIZE"}}
	for _, o := range objects {
		tbl.add(o.Key, strconv.FormatInt(o.Size, 10))
	}
	return write(format, objects, tbl)
}

func takeSnapshot(ctx context.Context, inv Inventory) (*Snapshot, error) {
	switches, err := switchViews(ctx, inv)
	if err != nil {
		return nil, err
	}
	rows, err := inv.ListInterfaces(ctx, "")
	if err != nil {
		return nil, err
	}
	networks, err := inv.ListNetworks(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		TakenAt:    now().UTC().Truncate(time.Second),
		Switches:   switches,
		Interfaces: make([]InterfaceView, 0, len(rows)),
		Networks:   make([]NetworkView, 0, len(networks)),
	}
	bound := make(map[string]int)
	for _, r := range rows {
		snap.Interfaces = append(snap.Interfaces, InterfaceView{
			Node: r.NodeName, Interface: r.Name, Network: r.NetworkName.String, Pod: r.Pod.String,
		})
		if r.NetworkName.Valid {
			bound[r.NetworkName.String]++
		}
	}
	for _, n := range networks {
		snap.Networks = append(snap.Networks, NetworkView{Name: n.Name, Type: n.Type, Bound: bound[n.Name]})
	}
	return snap, nil
}

// snapshotKey names objects so that lexical order is chronological.
func snapshotKey(prefix string, at time.Time) string {
	return snapshotPrefix(prefix) + at.UTC().Format("20060102T150405Z") + ".yaml"
}

func snapshotPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return path.Clean(prefix) + "/"
}
