package metamodel

import (
	"fmt"
	"strconv"
	"strings"
)

// TagName is the struct tag key holding mapping declarations.
const TagName = "onto"

type tagSpec struct {
	kind    string
	list    string
	iri     string
	lang    string
	next    string
	content string

	min, max       int
	hasMin, hasMax bool

	nonEmpty bool
	cascade  bool
	lazy     bool
	inferred bool
	lexical  bool
}

// parseTag reads declarations such as
//
//	onto:"data,iri=http://example.org/name,lang=en,min=1,max=1"
//	onto:"object,iri=http://example.org/owner,cascade,lazy"
//	onto:"list=referenced,iri=http://example.org/members"
func parseTag(tag string) (tagSpec, error) {
	var spec tagSpec
	parts := strings.Split(tag, ",")
	for i, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		if i == 0 && !hasValue {
			switch key {
			case "id", "data", "object", "annotation", "types", "properties":
				spec.kind = key
				continue
			}
			return spec, fmt.Errorf("unknown attribute kind %q", key)
		}
		switch key {
		case "list":
			if value != "simple" && value != "referenced" {
				return spec, fmt.Errorf("unknown list type %q", value)
			}
			spec.list = value
			if spec.kind == "" {
				spec.kind = "object"
			}
		case "iri":
			spec.iri = value
		case "lang":
			spec.lang = value
		case "next":
			spec.next = value
		case "content":
			spec.content = value
		case "min", "max":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return spec, fmt.Errorf("invalid %s bound %q", key, value)
			}
			if key == "min" {
				spec.min, spec.hasMin = n, true
			} else {
				spec.max, spec.hasMax = n, true
			}
		case "nonempty":
			spec.nonEmpty = true
		case "cascade":
			spec.cascade = true
		case "lazy":
			spec.lazy = true
		case "inferred":
			spec.inferred = true
		case "lexical":
			spec.lexical = true
		default:
			return spec, fmt.Errorf("unknown option %q", part)
		}
		if hasValue && value == "" {
			return spec, fmt.Errorf("option %q has no value", key)
		}
	}
	if spec.kind == "" {
		return spec, fmt.Errorf("missing attribute kind")
	}
	return spec, nil
}

func (s tagSpec) constraint() *Constraint {
	if !s.hasMin && !s.hasMax && !s.nonEmpty {
		return nil
	}
	c := &Constraint{Min: s.min, Max: Unbounded}
	if s.hasMax {
		c.Max = s.max
	}
	if s.nonEmpty && c.Min < 1 {
		c.Min = 1
	}
	return c
}
