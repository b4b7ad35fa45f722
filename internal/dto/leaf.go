package dto

import (
	"fmt"
	"reflect"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Nesting kinds, as written in the "kind" key of a nesting entry.
const (
	KindChoice = "choice"
	KindImport = "import"
	KindWizard = "wizard"
)

// LeafMetadata is the on-disk shape of a leaf. Nesting entries are kept raw
// and discriminated by their "kind" key.
type LeafMetadata struct {
	ID         string           `json:"id" mapstructure:"id"`
	Lang       string           `json:"lang" mapstructure:"lang"`
	Body       string           `json:"body" mapstructure:"body"`
	Exec       string           `json:"exec" mapstructure:"exec"`
	Validate   any              `json:"validate" mapstructure:"validate"`
	Optional   bool             `json:"optional" mapstructure:"optional"`
	Async      bool             `json:"async" mapstructure:"async"`
	CaptureEnv bool             `json:"captureEnv" mapstructure:"captureEnv"`
	Nesting    []map[string]any `json:"nesting" mapstructure:"nesting"`
}

// DecodeDocument decodes a leaf document: either a list of leaves or a map
// holding it under "leaves".
func DecodeDocument(raw any) ([]*domain.Leaf, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		items = v
	case map[string]any:
		list, ok := v["leaves"].([]any)
		if !ok && v["leaves"] != nil {
			return nil, fmt.Errorf("leaves must be a list, got %T", v["leaves"])
		}
		items = list
	default:
		return nil, fmt.Errorf("unsupported document type %T", raw)
	}

	leaves := make([]*domain.Leaf, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("leaf %d: expected a map, got %T", i, item)
		}
		l, err := DecodeLeaf(m)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves = append(leaves, l)
	}
	return leaves, nil
}

// DecodeLeaf decodes one leaf and its nesting path.
func DecodeLeaf(raw map[string]any) (*domain.Leaf, error) {
	var meta LeafMetadata
	if err := decode(raw, &meta); err != nil {
		return nil, err
	}
	if meta.ID == "" {
		return nil, fmt.Errorf("leaf missing id")
	}

	validate, err := decodeValidation(meta.Validate)
	if err != nil {
		return nil, fmt.Errorf("leaf %s: %w", meta.ID, err)
	}

	l := &domain.Leaf{
		ID:         meta.ID,
		Lang:       meta.Lang,
		Body:       meta.Body,
		Exec:       meta.Exec,
		Validate:   validate,
		Optional:   meta.Optional,
		Async:      meta.Async,
		CaptureEnv: meta.CaptureEnv,
	}
	for i, n := range meta.Nesting {
		desc, err := DecodeNesting(n)
		if err != nil {
			return nil, fmt.Errorf("leaf %s: nesting %d: %w", meta.ID, i, err)
		}
		l.Nesting = append(l.Nesting, desc)
	}
	return l, nil
}

// DecodeNesting decodes one ancestor descriptor.
func DecodeNesting(raw map[string]any) (domain.Nesting, error) {
	kind, _ := raw["kind"].(string)
	if kind == "" {
		kind = inferKind(raw)
	}
	switch kind {
	case KindChoice:
		var d domain.ChoiceMembership
		if err := decode(raw, &d); err != nil {
			return nil, err
		}
		if d.Group == "" {
			return nil, fmt.Errorf("choice nesting missing group")
		}
		return d, nil
	case KindImport:
		var d domain.Import
		if err := decode(raw, &d); err != nil {
			return nil, err
		}
		if d.Key == "" {
			return nil, fmt.Errorf("import nesting missing key")
		}
		return d, nil
	case KindWizard:
		var d domain.WizardStep
		if err := decode(raw, &d); err != nil {
			return nil, err
		}
		if d.Group == "" {
			return nil, fmt.Errorf("wizard nesting missing group")
		}
		return d, nil
	case "":
		return nil, fmt.Errorf("nesting missing kind")
	}
	return nil, fmt.Errorf("unknown nesting kind %q", kind)
}

// inferKind discriminates an entry without "kind" by its keys: wizardTitle
// makes a wizard step, key an import, group and member a choice.
func inferKind(raw map[string]any) string {
	switch {
	case raw["wizardTitle"] != nil:
		return KindWizard
	case raw["key"] != nil:
		return KindImport
	case raw["group"] != nil && raw["member"] != nil:
		return KindChoice
	}
	return ""
}

// EncodeLeaf is the inverse of DecodeLeaf.
func EncodeLeaf(l *domain.Leaf) map[string]any {
	out := map[string]any{"id": l.ID}
	put := func(k string, v any, set bool) {
		if set {
			out[k] = v
		}
	}
	put("lang", l.Lang, l.Lang != "")
	put("body", l.Body, l.Body != "")
	put("exec", l.Exec, l.Exec != "")
	if l.Validate != nil {
		out["validate"] = encodeValidation(l.Validate)
	}
	put("optional", true, l.Optional)
	put("async", true, l.Async)
	put("captureEnv", true, l.CaptureEnv)

	if len(l.Nesting) > 0 {
		nesting := make([]any, 0, len(l.Nesting))
		for _, n := range l.Nesting {
			nesting = append(nesting, EncodeNesting(n))
		}
		out["nesting"] = nesting
	}
	return out
}

// EncodeNesting is the inverse of DecodeNesting.
func EncodeNesting(n domain.Nesting) map[string]any {
	out := map[string]any{}
	switch d := n.(type) {
	case domain.ChoiceMembership:
		out["kind"] = KindChoice
		out["group"] = d.Group
		out["member"] = d.Member
		putString(out, "title", d.Title)
		putString(out, "description", d.Description)
		putString(out, "choiceTitle", d.ChoiceTitle)
		putString(out, "choiceDescription", d.ChoiceDescription)
		putString(out, "mode", string(d.Mode))
		if len(d.Origin) > 0 {
			out["origin"] = toAny(d.Origin)
		}
		if d.Field != nil {
			field := map[string]any{}
			putString(field, "label", d.Field.Label)
			putString(field, "default", d.Field.Default)
			if d.Field.Secret {
				field["secret"] = true
			}
			out["field"] = field
		}
	case domain.Import:
		out["kind"] = KindImport
		out["key"] = d.Key
		putString(out, "group", d.Group)
		putString(out, "title", d.Title)
		putString(out, "description", d.Description)
		putString(out, "filepath", d.Filepath)
		putString(out, "idempotencyGroup", d.IdempotencyGroup)
		putString(out, "finallyFor", d.FinallyFor)
		if d.Barrier {
			out["barrier"] = true
		}
		if d.Validate != nil {
			out["validate"] = encodeValidation(d.Validate)
		}
	case domain.WizardStep:
		out["kind"] = KindWizard
		out["group"] = d.Group
		out["member"] = d.Member
		putString(out, "title", d.Title)
		putString(out, "wizardTitle", d.WizardTitle)
	}
	return out
}

// decode runs mapstructure with the validation shorthand hook.
func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       validationHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

var validationType = reflect.TypeOf(domain.Validation{})

// validationHook accepts `validate: <command>` and `validate: true` as
// shorthands of the full map form.
func validationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != validationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return map[string]any{"command": v}, nil
	case bool:
		return map[string]any{"always": v}, nil
	}
	return data, nil
}

func decodeValidation(raw any) (*domain.Validation, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return &domain.Validation{Command: v}, nil
	case bool:
		if !v {
			return nil, nil
		}
		return &domain.Validation{Always: true}, nil
	case map[string]any:
		var out domain.Validation
		if err := decode(v, &out); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
		return &out, nil
	}
	return nil, fmt.Errorf("validate: unsupported value %T", raw)
}

func encodeValidation(v *domain.Validation) any {
	if v == nil {
		return nil
	}
	if v.Always {
		return true
	}
	return v.Command
}

func putString(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
