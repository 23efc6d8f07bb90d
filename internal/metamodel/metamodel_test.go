package metamodel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
	"ontomap/pkg/config"
	ontoerrors "ontomap/pkg/errors"
)

const ns = "http://example.org/"

type Described struct {
	Label   string   `onto:"data,iri=http://example.org/label,lang=en,min=1,max=1"`
	Aliases []string `onto:"data,iri=http://example.org/alias,max=3"`
}

type Person struct {
	Described

	ID         string              `onto:"id"`
	Age        int                 `onto:"data,iri=http://example.org/age"`
	Born       *time.Time          `onto:"data,iri=http://example.org/born"`
	Spouse     *Person             `onto:"object,iri=http://example.org/spouse,cascade"`
	Friends    []*Person           `onto:"object,iri=http://example.org/friend,lazy"`
	Children   []*Person           `onto:"list=simple,iri=http://example.org/children,next=http://example.org/nextChild"`
	Pets       []*Person           `onto:"list=referenced,iri=http://example.org/pets,nonempty"`
	SeeAlso    axiom.NamedResource `onto:"annotation,iri=http://example.org/seeAlso"`
	Code       string              `onto:"data,iri=http://example.org/code,lexical,inferred"`
	Types      []string            `onto:"types"`
	Properties map[string][]any    `onto:"properties"`
	transient  int
}

func TestRegister_BuildsAttributes(t *testing.T) {
	m := New(nil)
	et, err := m.Register(&Person{}, ns+"Person")
	require.NoError(t, err)

	assert.Equal(t, "Person", et.Name)
	assert.Equal(t, axiom.NamedResource(ns+"Person"), et.Class)
	require.NotNil(t, et.Types)
	require.NotNil(t, et.Properties)
	assert.True(t, et.Properties.TypedProperties)

	names := make([]string, 0, len(et.Attributes))
	for _, att := range et.Attributes {
		names = append(names, att.Name)
	}
	assert.Equal(t, []string{"Label", "Aliases", "Age", "Born", "Spouse", "Friends", "Children", "Pets", "SeeAlso", "Code"}, names)

	cases := map[string]Strategy{
		"Label":    StrategySingularData,
		"Aliases":  StrategyPluralData,
		"Age":      StrategySingularData,
		"Born":     StrategySingularData,
		"Spouse":   StrategySingularObject,
		"Friends":  StrategyPluralObject,
		"Children": StrategySimpleList,
		"Pets":     StrategyReferencedList,
		"SeeAlso":  StrategySingularData,
		"Code":     StrategySingularData,
	}
	for name, want := range cases {
		att, ok := et.Attribute(name)
		require.True(t, ok, name)
		assert.Equal(t, want, att.Strategy, name)
	}

	spouse, _ := et.Attribute("Spouse")
	assert.True(t, spouse.Cascade)
	assert.Equal(t, et.GoType, spouse.Target)

	friends, _ := et.Attribute("Friends")
	assert.True(t, friends.IsLazy())

	children, _ := et.Attribute("Children")
	assert.Equal(t, axiom.NamedResource(ns+"nextChild"), children.Next)

	pets, _ := et.Attribute("Pets")
	assert.Equal(t, axiom.NamedResource(axiom.SequenceHasNext), pets.Next)
	assert.Equal(t, axiom.NamedResource(axiom.SequenceHasContent), pets.Content)
	assert.Equal(t, &Constraint{Min: 1, Max: Unbounded}, pets.Constraint)

	code, _ := et.Attribute("Code")
	assert.True(t, code.LexicalForm)
	assert.True(t, code.Inferred)
	assert.True(t, code.Assertion().Inferred)
}

func TestRegister_InheritsSuperclassConstraints(t *testing.T) {
	m := New(nil)
	et, err := m.Register(Person{}, ns+"Person")
	require.NoError(t, err)

	byName := map[string]Constraint{}
	for _, c := range et.Constraints() {
		byName[c.Attribute.Name] = c.Constraint
	}
	assert.Equal(t, Constraint{Min: 1, Max: 1}, byName["Label"])
	assert.Equal(t, Constraint{Min: 0, Max: 3}, byName["Aliases"])
	assert.Equal(t, Constraint{Min: 1, Max: Unbounded}, byName["Pets"])
	assert.Len(t, byName, 3)

	label, _ := et.Attribute("Label")
	assert.Equal(t, "Described", label.Declaring.Name())
}

func TestRegister_IdentifierAccess(t *testing.T) {
	m := New(nil)
	et := m.MustRegister(&Person{}, ns+"Person")

	p := &Person{}
	et.SetIdentifier(p, ns+"alice")
	assert.Equal(t, ns+"alice", p.ID)
	assert.Equal(t, axiom.NamedResource(ns+"alice"), et.Identifier(p))

	fresh := et.New()
	_, ok := fresh.(*Person)
	assert.True(t, ok)

	p.Label = "Alice"
	label, _ := et.Attribute("Label")
	assert.Equal(t, "Alice", et.Field(p, label).String())
}

func TestRegister_Lookup(t *testing.T) {
	m := New(nil)
	et := m.MustRegister(&Person{}, ns+"Person")

	got, err := m.EntityTypeOf(&Person{})
	require.NoError(t, err)
	assert.Same(t, et, got)

	byClass, ok := m.ByClass(ns + "Person")
	require.True(t, ok)
	assert.Same(t, et, byClass)

	_, err = m.EntityTypeOf(Person{})
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeMapping))

	_, err = m.EntityTypeOf(&Described{})
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeMapping))
}

type noID struct {
	Name string `onto:"data,iri=http://example.org/name"`
}

type intID struct {
	ID int `onto:"id"`
}

type badTypes struct {
	ID    string `onto:"id"`
	Types []int  `onto:"types"`
}

type badProperties struct {
	ID    string         `onto:"id"`
	Props map[string]any `onto:"properties"`
}

type rawObject struct {
	ID    string `onto:"id"`
	Other any    `onto:"object,iri=http://example.org/other"`
}

type dataList struct {
	ID    string   `onto:"id"`
	Items []string `onto:"data,iri=http://example.org/items,list=simple"`
}

type missingIRI struct {
	ID   string `onto:"id"`
	Name string `onto:"data"`
}

type lexicalInt struct {
	ID  string `onto:"id"`
	Num int    `onto:"data,iri=http://example.org/num,lexical"`
}

type unknownOption struct {
	ID   string `onto:"id"`
	Name string `onto:"data,iri=http://example.org/name,eager"`
}

type badBounds struct {
	ID   string   `onto:"id"`
	Tags []string `onto:"data,iri=http://example.org/tag,min=3,max=1"`
}

type pointerSuper struct {
	*Described
	ID string `onto:"id"`
}

type cascadeData struct {
	ID   string `onto:"id"`
	Name string `onto:"data,iri=http://example.org/name,cascade"`
}

type resourceData struct {
	ID  string              `onto:"id"`
	Ref axiom.NamedResource `onto:"data,iri=http://example.org/ref"`
}

type requiredFlag struct {
	ID     string `onto:"id"`
	Active bool   `onto:"data,iri=http://example.org/active,min=1,max=1"`
}

type requiredCount struct {
	ID    string `onto:"id"`
	Count int    `onto:"data,iri=http://example.org/count,nonempty"`
}

func TestRegister_RejectsInvalidMappings(t *testing.T) {
	cases := map[string]any{
		"missing identifier":        noID{},
		"non-string identifier":     intID{},
		"types not []string":        badTypes{},
		"untyped properties map":    badProperties{},
		"raw object reference":      rawObject{},
		"list of literals":          dataList{},
		"missing iri":               missingIRI{},
		"lexical form on int":       lexicalInt{},
		"unknown option":            unknownOption{},
		"max below min":             badBounds{},
		"pointer superclass":        pointerSuper{},
		"cascade on data attribute": cascadeData{},
		"resource in data property": resourceData{},
		"required bool by value":    requiredFlag{},
		"required int by value":     requiredCount{},
	}
	for name, prototype := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil).Register(prototype, ns+"Thing")
			require.Error(t, err)
			assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeMapping))
		})
	}
}

func TestRegister_RequiredScalarPointer(t *testing.T) {
	type flag struct {
		ID     string `onto:"id"`
		Active *bool  `onto:"data,iri=http://example.org/active,min=1,max=1"`
		Count  []int  `onto:"data,iri=http://example.org/count,min=1"`
	}
	_, err := New(nil).Register(&flag{}, ns+"Flag")
	assert.NoError(t, err)
}

func TestRegister_RejectsBadClassIRI(t *testing.T) {
	_, err := New(nil).Register(&Person{}, "not an iri")
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeMapping))
}

func TestResolveStrategy(t *testing.T) {
	assert.Equal(t, StrategySingularData, ResolveStrategy(KindData, false, CollectionNone))
	assert.Equal(t, StrategyPluralData, ResolveStrategy(KindAnnotation, true, CollectionSet))
	assert.Equal(t, StrategySingularObject, ResolveStrategy(KindObject, false, CollectionNone))
	assert.Equal(t, StrategyPluralObject, ResolveStrategy(KindObject, true, CollectionSet))
	assert.Equal(t, StrategySimpleList, ResolveStrategy(KindObject, true, CollectionSimpleList))
	assert.Equal(t, StrategyReferencedList, ResolveStrategy(KindObject, true, CollectionReferencedList))
	assert.Equal(t, StrategyTypes, ResolveStrategy(KindTypes, true, CollectionSet))
	assert.Equal(t, StrategyProperties, ResolveStrategy(KindProperties, true, CollectionNone))
}

func TestModuleExtractionSignature(t *testing.T) {
	cfg := &config.Config{
		ModuleExtractionSignature: ns + "b; " + ns + "a;;",
		SignatureDelimiter:        ";",
	}
	m := New(cfg)

	assert.Equal(t, []axiom.NamedResource{ns + "a", ns + "b"}, m.ModuleExtractionSignature())

	require.NoError(t, m.AddToModuleExtractionSignature(ns+"c"))
	assert.Len(t, m.ModuleExtractionSignature(), 3)

	err := m.AddToModuleExtractionSignature("::bad::")
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeMapping))
}

func TestModuleExtractionSignature_ConcurrentAccess(t *testing.T) {
	m := New(&config.Config{ModuleExtractionSignature: ns + "seed"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = m.AddToModuleExtractionSignature(ns + "added")
				return
			}
			_ = m.ModuleExtractionSignature()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []axiom.NamedResource{ns + "added", ns + "seed"}, m.ModuleExtractionSignature())
}
