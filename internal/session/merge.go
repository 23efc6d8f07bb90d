package session

import "ontomap/internal/metamodel"

// MergeManager brings originals up to date with committed clone state.
type MergeManager struct {
	cloner *CloneBuilder
}

func NewMergeManager(cloner *CloneBuilder) *MergeManager {
	return &MergeManager{cloner: cloner}
}

// MergeRecord copies the value of one written attribute from clone into
// original. References are translated with toOriginal.
func (m *MergeManager) MergeRecord(et *metamodel.EntityType, original, clone any, rec ChangeRecord, toOriginal ReferenceMapper) error {
	return m.cloner.CopyAttribute(et, rec.Attribute, original, clone, toOriginal)
}
