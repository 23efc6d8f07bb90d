// Package descriptor holds the per-call context and language overrides that
// accompany every load and write.
package descriptor

import (
	"ontomap/internal/metamodel"
	"ontomap/pkg/config"
)

// Descriptor tells the mapper where an entity lives and which language its
// string literals use.
type Descriptor interface {
	// Context is the graph of the entity; "" is the default graph.
	Context() string
	// Language is the language tag of string literals; "" means none.
	Language() string
	AttributeContext(att *metamodel.Attribute) string
	AttributeLanguage(att *metamodel.Attribute) string
	// AttributeDescriptor describes the entities referenced by att.
	AttributeDescriptor(att *metamodel.Attribute) Descriptor
}

// EntityDescriptor is the standard Descriptor. The zero value describes an
// entity in the default graph without a language.
type EntityDescriptor struct {
	context     string
	language    string
	hasLanguage bool

	contexts    map[string]string
	languages   map[string]string
	descriptors map[string]Descriptor
}

// New creates a descriptor for entities in context.
func New(context string) *EntityDescriptor {
	return &EntityDescriptor{context: context}
}

// FromConfig creates a descriptor using the configured default context and language.
func FromConfig(cfg *config.Config) *EntityDescriptor {
	d := New(cfg.DefaultContext)
	if cfg.Language != "" {
		d.SetLanguage(cfg.Language)
	}
	return d
}

// SetLanguage sets the descriptor language. An explicit "" disables
// language tagging even for attributes declaring a language.
func (d *EntityDescriptor) SetLanguage(language string) *EntityDescriptor {
	d.language = language
	d.hasLanguage = true
	return d
}

// SetAttributeContext places the values of the named attribute in context.
func (d *EntityDescriptor) SetAttributeContext(attribute, context string) *EntityDescriptor {
	if d.contexts == nil {
		d.contexts = make(map[string]string)
	}
	d.contexts[attribute] = context
	return d
}

// SetAttributeLanguage overrides the language of the named attribute.
func (d *EntityDescriptor) SetAttributeLanguage(attribute, language string) *EntityDescriptor {
	if d.languages == nil {
		d.languages = make(map[string]string)
	}
	d.languages[attribute] = language
	return d
}

// SetAttributeDescriptor sets the descriptor of entities referenced by the named attribute.
func (d *EntityDescriptor) SetAttributeDescriptor(attribute string, desc Descriptor) *EntityDescriptor {
	if d.descriptors == nil {
		d.descriptors = make(map[string]Descriptor)
	}
	d.descriptors[attribute] = desc
	return d
}

func (d *EntityDescriptor) Context() string {
	return d.context
}

func (d *EntityDescriptor) Language() string {
	return d.language
}

// AttributeContext returns the attribute override or the entity context.
func (d *EntityDescriptor) AttributeContext(att *metamodel.Attribute) string {
	if ctx, ok := d.contexts[att.Name]; ok {
		return ctx
	}
	if nested, ok := d.descriptors[att.Name]; ok {
		return nested.Context()
	}
	return d.context
}

// AttributeLanguage returns the attribute override, then the descriptor
// language, then the language declared on the attribute.
func (d *EntityDescriptor) AttributeLanguage(att *metamodel.Attribute) string {
	if lang, ok := d.languages[att.Name]; ok {
		return lang
	}
	if d.hasLanguage {
		return d.language
	}
	return att.Language
}

// AttributeDescriptor returns the nested descriptor of att. Without one,
// referenced entities share this descriptor's language and the attribute context.
func (d *EntityDescriptor) AttributeDescriptor(att *metamodel.Attribute) Descriptor {
	if nested, ok := d.descriptors[att.Name]; ok {
		return nested
	}
	out := New(d.AttributeContext(att))
	if d.hasLanguage {
		out.SetLanguage(d.language)
	}
	return out
}
