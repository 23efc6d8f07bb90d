// Package session tracks managed entities of one transaction. Loaded
// entities are handed out as clones; commit compares every clone with its
// original and writes the changed attributes.
package session

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ontomap/internal/axiom"
	"ontomap/internal/descriptor"
	"ontomap/internal/metamodel"
	"ontomap/internal/metrics"
	"ontomap/internal/oom"
	"ontomap/internal/validator"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// ClonePair is a managed entity: the original reflects the stored state and
// the clone is the instance handed to the caller.
type ClonePair struct {
	original any
	clone    any
	et       *metamodel.EntityType
	desc     descriptor.Descriptor
}

func (p *ClonePair) Original() any                     { return p.original }
func (p *ClonePair) Clone() any                        { return p.clone }
func (p *ClonePair) EntityType() *metamodel.EntityType { return p.et }

type identity struct {
	goType  reflect.Type
	id      axiom.NamedResource
	context string
}

// UnitOfWork is a single transaction over a store connection. Not safe for
// concurrent use.
type UnitOfWork struct {
	mm      *metamodel.Metamodel
	mapper  *oom.Mapper
	cloner  *CloneBuilder
	changes *ChangeManager
	merger  *MergeManager
	metrics *metrics.Metrics
	logger  *zap.Logger

	pairs      []*ClonePair
	byClone    map[any]*ClonePair
	byOriginal map[any]*ClonePair
	byIdentity map[identity]*ClonePair
	released   bool
}

// New creates a unit of work over conn. m may be nil.
func New(mm *metamodel.Metamodel, conn oom.Connector, m *metrics.Metrics) *UnitOfWork {
	cloner := NewCloneBuilder(mm)
	u := &UnitOfWork{
		mm:         mm,
		cloner:     cloner,
		changes:    NewChangeManager(mm),
		merger:     NewMergeManager(cloner),
		metrics:    m,
		logger:     logger.Named("session"),
		byClone:    make(map[any]*ClonePair),
		byOriginal: make(map[any]*ClonePair),
		byIdentity: make(map[identity]*ClonePair),
	}
	u.mapper = oom.NewMapper(mm, conn, u)
	return u
}

func (u *UnitOfWork) checkActive(op string) error {
	if u.released {
		return ontoerrors.NewIllegalState(op, "unit of work has been released")
	}
	return nil
}

// RegisterExisting returns the managed clone of id, loading it when the
// identity is not managed yet. It returns nil when the store holds nothing
// about id.
func (u *UnitOfWork) RegisterExisting(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (any, error) {
	if err := u.checkActive("register existing"); err != nil {
		return nil, err
	}
	if p, ok := u.byIdentity[identity{et.GoType, id, desc.Context()}]; ok {
		return p.clone, nil
	}
	original, err := u.mapper.LoadEntity(ctx, et, id, desc)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, nil
	}
	return u.registerClone(et, original, desc)
}

// Find is RegisterExisting for entity type T.
func Find[T any](ctx context.Context, u *UnitOfWork, id axiom.NamedResource, desc descriptor.Descriptor) (*T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	et, ok := u.mm.EntityType(t)
	if !ok {
		return nil, ontoerrors.NewInvalidFieldMapping(t.Name(), "", "type is not a registered entity")
	}
	clone, err := u.RegisterExisting(ctx, et, id, desc)
	if err != nil || clone == nil {
		return nil, err
	}
	return clone.(*T), nil
}

// registerClone creates the pair of a loaded original. References are
// registered as pairs of their own.
func (u *UnitOfWork) registerClone(et *metamodel.EntityType, original any, desc descriptor.Descriptor) (any, error) {
	if p, ok := u.byOriginal[original]; ok {
		return p.clone, nil
	}
	p := &ClonePair{original: original, clone: et.New(), et: et, desc: desc}
	u.add(p)
	if err := u.cloner.CopyInto(et, p.clone, original, u.toClone(desc)); err != nil {
		u.drop(p)
		return nil, err
	}
	u.metrics.RecordLoad(et.Name)
	return p.clone, nil
}

// toClone maps references of an original to managed clones.
func (u *UnitOfWork) toClone(desc descriptor.Descriptor) ReferenceMapper {
	return func(att *metamodel.Attribute, target *metamodel.EntityType, ref any) (any, error) {
		if p, ok := u.byOriginal[ref]; ok {
			return p.clone, nil
		}
		if _, ok := u.byClone[ref]; ok {
			return ref, nil
		}
		return u.registerClone(target, ref, desc.AttributeDescriptor(att))
	}
}

// toOriginal maps references of a clone to originals. Unmanaged references
// are kept.
func (u *UnitOfWork) toOriginal(_ *metamodel.Attribute, _ *metamodel.EntityType, ref any) (any, error) {
	if p, ok := u.byClone[ref]; ok {
		return p.original, nil
	}
	return ref, nil
}

func (u *UnitOfWork) add(p *ClonePair) {
	u.pairs = append(u.pairs, p)
	u.byClone[p.clone] = p
	u.byOriginal[p.original] = p
	if id := p.et.Identifier(p.original); id != "" {
		u.byIdentity[identity{p.et.GoType, id, p.desc.Context()}] = p
	}
}

func (u *UnitOfWork) drop(p *ClonePair) {
	delete(u.byClone, p.clone)
	delete(u.byOriginal, p.original)
	key := identity{p.et.GoType, p.et.Identifier(p.clone), p.desc.Context()}
	if u.byIdentity[key] == p {
		delete(u.byIdentity, key)
	}
	for i, q := range u.pairs {
		if q == p {
			u.pairs = append(u.pairs[:i], u.pairs[i+1:]...)
			break
		}
	}
}

// Persist registers entity as a new managed instance and writes it. An
// identifier is generated when the entity has none.
func (u *UnitOfWork) Persist(ctx context.Context, entity any, desc descriptor.Descriptor) error {
	if err := u.checkActive("persist"); err != nil {
		return err
	}
	et, err := u.mm.EntityTypeOf(entity)
	if err != nil {
		return err
	}
	if u.IsManaged(entity) {
		return ontoerrors.NewIllegalState("persist", fmt.Sprintf("%s %s is already managed", et.Name, et.Identifier(entity)))
	}
	id := et.Identifier(entity)
	if id != "" {
		if _, ok := u.byIdentity[identity{et.GoType, id, desc.Context()}]; ok {
			return ontoerrors.NewIllegalState("persist", fmt.Sprintf("another instance of %s %s is already managed", et.Name, id))
		}
	}
	if err := validator.ValidateObject(entity, et, true); err != nil {
		u.metrics.RecordValidationFailure(et.Name)
		return err
	}

	// The pair is registered before writing so that cascades reaching back
	// to entity see it as managed.
	p := &ClonePair{original: et.New(), clone: entity, et: et, desc: desc}
	u.add(p)
	if err := u.mapper.PersistEntity(ctx, id, entity, desc); err != nil {
		u.drop(p)
		return err
	}
	if err := u.cloner.CopyInto(et, p.original, entity, u.toOriginal); err != nil {
		u.drop(p)
		return err
	}
	u.byIdentity[identity{et.GoType, et.Identifier(entity), desc.Context()}] = p
	u.logger.Debug("registered new instance", zap.String("type", et.Name), zap.String("id", string(et.Identifier(entity))))
	return nil
}

// RemoveObject removes every statement of the identity and stops managing it.
func (u *UnitOfWork) RemoveObject(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) error {
	if err := u.checkActive("remove"); err != nil {
		return err
	}
	if err := u.mapper.RemoveEntity(ctx, et, id, desc); err != nil {
		return err
	}
	if p, ok := u.byIdentity[identity{et.GoType, id, desc.Context()}]; ok {
		u.drop(p)
	}
	return nil
}

// Remove removes a managed entity.
func (u *UnitOfWork) Remove(ctx context.Context, entity any) error {
	p, ok := u.Pair(entity)
	if !ok {
		return ontoerrors.NewIllegalState("remove", fmt.Sprintf("%T is not managed", entity))
	}
	return u.RemoveObject(ctx, p.et, p.et.Identifier(entity), p.desc)
}

// Pair returns the pair of a managed clone.
func (u *UnitOfWork) Pair(clone any) (*ClonePair, bool) {
	// Only pointers are ever managed, and non-pointer keys may not be hashable.
	if t := reflect.TypeOf(clone); t == nil || t.Kind() != reflect.Ptr {
		return nil, false
	}
	p, ok := u.byClone[clone]
	return p, ok
}

// CalculateChanges compares the clone of p with its original.
func (u *UnitOfWork) CalculateChanges(p *ClonePair) (*ChangeSet, error) {
	return u.changes.CalculateChanges(p.et, p.original, p.clone)
}

// Commit writes the changed attributes of every managed clone, then checks
// that every pending persist reached the store. A clone failing validation
// is skipped; writes already issued for other clones stay. All errors are
// returned together.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.checkActive("commit"); err != nil {
		return err
	}
	start := time.Now()
	status := metrics.StatusCommitted
	var errs error

	// Cascades during the writes may add pairs; those are written by Persist.
	pairs := append([]*ClonePair(nil), u.pairs...)
	for _, p := range pairs {
		cs, err := u.CalculateChanges(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			status = metrics.StatusFailed
			continue
		}
		if !cs.HasChanges() {
			continue
		}
		if err := validator.ValidateChangeSet(cs, u.mm); err != nil {
			u.metrics.RecordValidationFailure(p.et.Name)
			u.logger.Warn("change set rejected",
				zap.String("type", p.et.Name),
				zap.String("id", string(cs.Identifier())),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
			if status == metrics.StatusCommitted {
				status = metrics.StatusInvalid
			}
			continue
		}
		written := 0
		for _, rec := range cs.Records() {
			if err := u.mapper.UpdateFieldValue(ctx, p.clone, rec.Attribute, p.desc); err != nil {
				errs = multierr.Append(errs, err)
				status = metrics.StatusFailed
				continue
			}
			if err := u.merger.MergeRecord(p.et, p.original, p.clone, rec, u.toOriginal); err != nil {
				errs = multierr.Append(errs, err)
				status = metrics.StatusFailed
				continue
			}
			written++
		}
		u.metrics.RecordChanges(p.et.Name, written)
	}

	if err := u.mapper.CheckForUnpersistedChanges(ctx); err != nil {
		u.metrics.RecordUnpersisted(len(multierr.Errors(err)))
		errs = multierr.Append(errs, err)
		if status == metrics.StatusCommitted {
			status = metrics.StatusUnresolved
		}
	}
	u.metrics.RecordCommit(status, time.Since(start))
	u.logger.Info("commit finished",
		zap.String("status", status),
		zap.Int("managed", len(u.pairs)),
		zap.Duration("duration", time.Since(start)),
	)
	return errs
}

// Rollback discards every managed pair and pending persist. Clones handed
// out before keep their state but are no longer tracked.
func (u *UnitOfWork) Rollback() {
	u.pairs = nil
	clear(u.byClone)
	clear(u.byOriginal)
	clear(u.byIdentity)
	u.mapper.Pending().Reset()
}

// Release rolls back and makes every further call fail.
func (u *UnitOfWork) Release() {
	u.Rollback()
	u.released = true
}

// Contains reports whether the identity is managed or exists in the store.
func (u *UnitOfWork) Contains(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (bool, error) {
	if err := u.checkActive("contains"); err != nil {
		return false, err
	}
	if _, ok := u.byIdentity[identity{et.GoType, id, desc.Context()}]; ok {
		return true, nil
	}
	return u.mapper.ContainsEntity(ctx, et, id, desc)
}

// LoadField loads the attribute name of a managed clone, typically a lazy
// one, and checks its constraints.
func (u *UnitOfWork) LoadField(ctx context.Context, entity any, name string) error {
	if err := u.checkActive("load field"); err != nil {
		return err
	}
	p, ok := u.Pair(entity)
	if !ok {
		return ontoerrors.NewIllegalState("load field", fmt.Sprintf("%T is not managed", entity))
	}
	att, ok := p.et.Attribute(name)
	if !ok {
		return ontoerrors.NewInvalidFieldMapping(p.et.Name, name, "unknown attribute")
	}
	// The value is loaded into the original so the clone does not show it
	// as a change.
	if err := u.mapper.LoadFieldValue(ctx, p.original, att, p.desc); err != nil {
		return err
	}
	if err := u.cloner.CopyAttribute(p.et, att, p.clone, p.original, u.toClone(p.desc)); err != nil {
		return err
	}
	return validator.ValidateAttribute(p.et.Identifier(entity), att, p.et.Field(entity, att).Interface())
}

// Pending exposes the references awaiting confirmation at commit.
func (u *UnitOfWork) Pending() *oom.PendingRegistry {
	return u.mapper.Pending()
}

// ManagedOriginal implements oom.Session.
func (u *UnitOfWork) ManagedOriginal(et *metamodel.EntityType, id axiom.NamedResource, graph string) (any, bool) {
	p, ok := u.byIdentity[identity{et.GoType, id, graph}]
	if !ok {
		return nil, false
	}
	return p.original, true
}

// Original implements oom.Session.
func (u *UnitOfWork) Original(clone any) (any, bool) {
	p, ok := u.Pair(clone)
	if !ok {
		return nil, false
	}
	return p.original, true
}

// IsManaged reports whether entity is a clone managed by u.
func (u *UnitOfWork) IsManaged(entity any) bool {
	_, ok := u.Pair(entity)
	return ok
}
