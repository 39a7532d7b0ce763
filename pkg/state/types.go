package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	templating "github.com/goliatone/go-templating"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies the persisted variables of one dashboard.
type Ref struct {
	Org       string
	Dashboard string
}

// Identifier returns the canonical storage key of the reference.
func (r Ref) Identifier() (string, error) {
	dashboard := strings.TrimSpace(r.Dashboard)
	if dashboard == "" {
		return "", fmt.Errorf("state: dashboard is required")
	}
	if org := strings.TrimSpace(r.Org); org != "" {
		return fmt.Sprintf("org/%s/dashboard/%s", org, dashboard), nil
	}
	return fmt.Sprintf("dashboard/%s", dashboard), nil
}

// Snapshot is the persisted variable list of a dashboard, in order.
type Snapshot struct {
	Variables []templating.SaveModel `json:"list" yaml:"list"`
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
