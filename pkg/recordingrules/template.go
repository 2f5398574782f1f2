package recordingrules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Template is one accepted rule-group template from the recommendations API.
type Template struct {
	Name      string
	ID        string
	Resources []Resource
}

// Resource is one entry of a template's rulesArmTemplate.resources.
type Resource struct {
	Type  string
	Rules []Rule
}

// Rule is a recording rule. Fields other than record and expression
// (labels, enabled, ...) are kept as returned by the API and written back
// unchanged when the rule group is provisioned.
type Rule struct {
	Record     string
	Expression string
	fields     map[string]any
}

// NewRule creates a rule with only record and expression set.
func NewRule(record, expression string) Rule {
	return Rule{
		Record:     record,
		Expression: expression,
		fields: map[string]any{
			"record":     record,
			"expression": expression,
		},
	}
}

// Labels returns the rule's string labels, if any.
func (r Rule) Labels() map[string]string {
	raw, ok := r.fields["labels"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	labels := make(map[string]string, len(raw))

	for k, v := range raw {
		if s, ok := v.(string); ok {
			labels[k] = s
		}
	}

	return labels
}

// Field returns an arbitrary field of the rule as decoded from JSON.
func (r Rule) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// MarshalJSON writes the rule with every field it was decoded with.
func (r Rule) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return json.Marshal(map[string]any{"record": r.Record, "expression": r.Expression})
	}

	return json.Marshal(r.fields)
}

// FirstResourceRules returns the rules of the template's first resource,
// which are the rules a default rule group is provisioned with.
func (t Template) FirstResourceRules() ([]Rule, error) {
	if len(t.Resources) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTemplateWithoutResources, t.Name)
	}

	return t.Resources[0].Rules, nil
}

// ParseTemplates decodes a recommendations response body and filters its
// "value" array. A body that is not JSON, or whose "value" is not an array,
// is an error; individual malformed entries are returned as rejections.
func ParseTemplates(body []byte) ([]Template, []Rejection, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	raw, ok := doc["value"]
	if !ok || raw == nil {
		return nil, nil, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: value is %T, not an array", ErrMalformedResponse, raw)
	}

	templates, rejected := FilterTemplates(entries)

	return templates, rejected, nil
}

// decodeTemplate converts an entry that already passed the filter.
func decodeTemplate(entry map[string]any) Template {
	t := Template{
		Name: stringField(entry, "name"),
		ID:   stringField(entry, "id"),
	}

	resources, _ := rulesArmResources(entry)
	t.Resources = make([]Resource, 0, len(resources))

	for _, r := range resources {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}

		res := Resource{Type: stringField(obj, "type")}

		rules, _ := objectField(obj, "properties")["rules"].([]any)
		for _, rule := range rules {
			fields, ok := rule.(map[string]any)
			if !ok {
				continue
			}

			res.Rules = append(res.Rules, Rule{
				Record:     stringField(fields, "record"),
				Expression: stringField(fields, "expression"),
				fields:     fields,
			})
		}

		t.Resources = append(t.Resources, res)
	}

	return t
}

// TemplateNames lists template names in order.
func TemplateNames(templates []Template) []string {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.Name
	}

	return names
}

// RecordNames returns the sorted, de-duplicated record names of a rule list.
func RecordNames(rules []Rule) []string {
	seen := make(map[string]bool, len(rules))
	names := make([]string, 0, len(rules))

	for _, r := range rules {
		if seen[r.Record] {
			continue
		}

		seen[r.Record] = true
		names = append(names, r.Record)
	}

	sort.Strings(names)

	return names
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func objectField(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	return m
}

func rulesArmResources(entry map[string]any) ([]any, bool) {
	tmpl := objectField(objectField(entry, "properties"), "rulesArmTemplate")
	resources, ok := tmpl["resources"].([]any)

	return resources, ok
}
