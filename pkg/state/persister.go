package state

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	templating "github.com/goliatone/go-templating"
	"github.com/goliatone/go-templating/internal/hydrate"
)

// etagNamespace scopes content derived ETags.
var etagNamespace = uuid.MustParse("5b8d7a0e-3c2f-4b61-9a57-0f6c2e4d9b13")

// Persister moves variables between a Dispatcher and a Store.
type Persister struct {
	Store Store[Snapshot]
	// Registry resolves kinds while importing. Nil selects
	// templating.DefaultRegistry.
	Registry *templating.Registry
	// Now stamps Meta.UpdatedAt. Nil selects time.Now.
	Now func() time.Time
}

// BuildSnapshot collects the save model of every variable of d in order.
func BuildSnapshot(d templating.Dispatcher) (Snapshot, error) {
	variables := d.Snapshot().Variables()
	snapshot := Snapshot{Variables: make([]templating.SaveModel, 0, len(variables))}
	for _, variable := range variables {
		adapter, err := d.Adapter(variable.Common().Type)
		if err != nil {
			return Snapshot{}, err
		}
		model, err := adapter.GetSaveModel(variable)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.Variables = append(snapshot.Variables, model)
	}
	return snapshot, nil
}

// ETag returns the content derived tag of snapshot.
func ETag(snapshot Snapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("state: etag: %w", err)
	}
	return uuid.NewSHA1(etagNamespace, payload).String(), nil
}

// Export saves the variables of d under ref. When meta carries an ETag it
// must match the stored one.
func (p Persister) Export(ctx context.Context, ref Ref, d templating.Dispatcher, meta Meta) (Snapshot, Meta, error) {
	if p.Store == nil {
		return Snapshot{}, Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Snapshot{}, Meta{}, err
	}

	_, loadedMeta, ok, err := p.Store.Load(ctx, ref)
	if err != nil {
		return Snapshot{}, Meta{}, fmt.Errorf("state: load %q: %w", ref.Dashboard, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return Snapshot{}, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	snapshot, err := BuildSnapshot(d)
	if err != nil {
		return Snapshot{}, loadedMeta, err
	}
	etag, err := ETag(snapshot)
	if err != nil {
		return Snapshot{}, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, Meta{Extra: meta.Extra})
	saveMeta.SnapshotID = uuid.NewString()
	saveMeta.ETag = etag
	saveMeta.UpdatedAt = p.now()

	savedMeta, err := p.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return Snapshot{}, loadedMeta, fmt.Errorf("state: save %q: %w", ref.Dashboard, err)
	}
	return snapshot, savedMeta, nil
}

// Import loads the snapshot stored under ref and adds its variables to d in
// order. ok is false when nothing is stored.
func (p Persister) Import(ctx context.Context, ref Ref, d templating.Dispatcher) (Meta, bool, error) {
	if p.Store == nil {
		return Meta{}, false, fmt.Errorf("state: store is required")
	}
	snapshot, meta, ok, err := p.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, false, fmt.Errorf("state: load %q: %w", ref.Dashboard, err)
	}
	if !ok {
		return Meta{}, false, nil
	}

	definitions := make([]map[string]any, 0, len(snapshot.Variables))
	for _, model := range snapshot.Variables {
		definitions = append(definitions, map[string]any(model))
	}
	decoder := hydrate.NewDecoder(p.Registry)
	variables, err := decoder.DecodeAll(hydrate.Context{Dashboard: ref.Dashboard, Source: meta.SnapshotID}, definitions)
	if err != nil {
		return meta, true, err
	}
	for _, variable := range variables {
		action := templating.AddVariable{ID: variable.Common().ID(), Model: variable}
		if err := d.Dispatch(ctx, action); err != nil {
			return meta, true, err
		}
	}
	return meta, true, nil
}

func (p Persister) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
