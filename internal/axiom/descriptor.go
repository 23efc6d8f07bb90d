package axiom

// AxiomDescriptor describes which assertions of a subject to load or remove.
type AxiomDescriptor struct {
	Subject    NamedResource
	Context    string
	assertions []Assertion
	contexts   map[NamedResource]string
}

// NewAxiomDescriptor creates a descriptor for the subject.
func NewAxiomDescriptor(subject NamedResource) *AxiomDescriptor {
	return &AxiomDescriptor{Subject: subject, contexts: make(map[NamedResource]string)}
}

// AddAssertion adds an assertion to load. Adding the same predicate twice is a no-op.
func (d *AxiomDescriptor) AddAssertion(a Assertion) {
	for _, existing := range d.assertions {
		if existing.IRI == a.IRI && existing.Type == a.Type {
			return
		}
	}
	d.assertions = append(d.assertions, a)
}

// SetAssertionContext overrides the context in which the assertion is looked up.
func (d *AxiomDescriptor) SetAssertionContext(a Assertion, context string) {
	d.contexts[a.IRI] = context
}

// Assertions returns the assertions in insertion order.
func (d *AxiomDescriptor) Assertions() []Assertion {
	return d.assertions
}

// AssertionContext returns the context of the assertion, defaulting to the subject context.
func (d *AxiomDescriptor) AssertionContext(a Assertion) string {
	if ctx, ok := d.contexts[a.IRI]; ok {
		return ctx
	}
	return d.Context
}

// AxiomValueDescriptor carries values to be written for a subject.
type AxiomValueDescriptor struct {
	Subject    NamedResource
	Context    string
	assertions []Assertion
	values     map[NamedResource][]Value
	contexts   map[NamedResource]string
}

// NewAxiomValueDescriptor creates a value descriptor for the subject.
func NewAxiomValueDescriptor(subject NamedResource) *AxiomValueDescriptor {
	return &AxiomValueDescriptor{
		Subject:  subject,
		values:   make(map[NamedResource][]Value),
		contexts: make(map[NamedResource]string),
	}
}

// AddAssertion registers an assertion without values, marking it as touched.
// On update, a touched assertion with no values clears the stored ones.
func (d *AxiomValueDescriptor) AddAssertion(a Assertion) {
	if _, ok := d.values[a.IRI]; ok {
		return
	}
	d.assertions = append(d.assertions, a)
	d.values[a.IRI] = nil
}

// AddAssertionValue appends a value of the assertion.
func (d *AxiomValueDescriptor) AddAssertionValue(a Assertion, v Value) {
	d.AddAssertion(a)
	d.values[a.IRI] = append(d.values[a.IRI], v)
}

// SetAssertionContext overrides the context the assertion's values are written to.
func (d *AxiomValueDescriptor) SetAssertionContext(a Assertion, context string) {
	d.contexts[a.IRI] = context
}

// AssertionContext returns the context of the assertion, defaulting to the subject context.
func (d *AxiomValueDescriptor) AssertionContext(a Assertion) string {
	if ctx, ok := d.contexts[a.IRI]; ok {
		return ctx
	}
	return d.Context
}

// Assertions returns the touched assertions in insertion order.
func (d *AxiomValueDescriptor) Assertions() []Assertion {
	return d.assertions
}

// AssertionValues returns the values of the assertion.
func (d *AxiomValueDescriptor) AssertionValues(a Assertion) []Value {
	return d.values[a.IRI]
}

// IsEmpty reports whether no assertion was touched.
func (d *AxiomValueDescriptor) IsEmpty() bool {
	return len(d.assertions) == 0
}

// SimpleListDescriptor locates a simple list: owner --ListProperty--> n0 --NextNode--> n1 ...
type SimpleListDescriptor struct {
	Owner        NamedResource
	ListProperty Assertion
	NextNode     Assertion
	Context      string
}

// ReferencedListDescriptor locates a referenced list:
// owner --ListProperty--> node0, node --NodeContent--> value, node --NextNode--> node'.
type ReferencedListDescriptor struct {
	Owner        NamedResource
	ListProperty Assertion
	NextNode     Assertion
	NodeContent  Assertion
	Context      string
}

// SimpleListValueDescriptor is a simple list descriptor with the desired sequence.
type SimpleListValueDescriptor struct {
	SimpleListDescriptor
	Values []NamedResource
}

// ReferencedListValueDescriptor is a referenced list descriptor with the desired sequence.
type ReferencedListValueDescriptor struct {
	ReferencedListDescriptor
	Values []NamedResource
}
