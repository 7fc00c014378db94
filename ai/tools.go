package ai

import (
	"encoding/json"
	"fmt"

	"spaceplan/ports"
)

// ParamType is the JSON type a tool parameter must carry
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamArray   ParamType = "array"
	ParamBool    ParamType = "boolean"
)

// ParamSpec describes one tool parameter
type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
}

// ToolSpec describes one operation the collaborator may request
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Catalog is the closed set of tools exposed to the collaborator.
// Anything outside this list is rejected before it can touch the graph.
type Catalog struct {
	tools map[string]ToolSpec
	order []string
}

// NewCatalog builds the default tool catalog
func NewCatalog() *Catalog {
	c := &Catalog{tools: make(map[string]ToolSpec)}
	for _, spec := range defaultTools() {
		c.tools[spec.Name] = spec
		c.order = append(c.order, spec.Name)
	}
	return c
}

func defaultTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        "create_program",
			Description: "Generate a full space program from a short description of the project",
			Params: []ParamSpec{
				{Name: "brief", Type: ParamString, Required: true, Description: "The project description to program from"},
			},
		},
		{
			Name:        "parse_brief",
			Description: "Extract areas from pasted brief text, tables, or notes",
			Params: []ParamSpec{
				{Name: "text", Type: ParamString, Required: true, Description: "Raw brief text"},
			},
		},
		{
			Name:        "unfold_area",
			Description: "Split one area line into individually named instances",
			Params: []ParamSpec{
				{Name: "area", Type: ParamString, Required: true, Description: "Name or id of the area to unfold"},
				{Name: "quantities", Type: ParamArray, Required: true, Description: "Instance counts, summing to the area's count"},
				{Name: "names", Type: ParamArray, Required: false, Description: "Optional names for each instance"},
			},
		},
		{
			Name:        "organize_areas",
			Description: "Reorganize every area into groups following an instruction",
			Params: []ParamSpec{
				{Name: "instruction", Type: ParamString, Required: false, Description: "How to organize, e.g. by privacy or by floor"},
			},
		},
		{
			Name:        "regroup_by_function",
			Description: "Regroup all areas by their architectural function",
			Params:      nil,
		},
		{
			Name:        "split_group_numerically",
			Description: "Divide a group into parts, equally or by proportional weights",
			Params: []ParamSpec{
				{Name: "group", Type: ParamString, Required: true, Description: "Name or id of the group"},
				{Name: "parts", Type: ParamInteger, Required: false, Description: "Number of equal parts"},
				{Name: "proportions", Type: ParamArray, Required: false, Description: "Positive weights, one per part"},
			},
		},
		{
			Name:        "scale_areas",
			Description: "Multiply per-unit areas by a factor",
			Params: []ParamSpec{
				{Name: "factor", Type: ParamNumber, Required: true, Description: "Scale factor, must be positive"},
				{Name: "areas", Type: ParamArray, Required: false, Description: "Area names or ids; empty means all"},
			},
		},
		{
			Name:        "get_summary",
			Description: "Summarize the current program: totals, groups, flagged areas",
			Params:      nil,
		},
		{
			Name:        "find_area",
			Description: "Look up an area by name",
			Params: []ParamSpec{
				{Name: "name", Type: ParamString, Required: true, Description: "Area name to search for"},
			},
		},
		{
			Name:        "respond_to_user",
			Description: "Reply to the user without changing the program",
			Params: []ParamSpec{
				{Name: "message", Type: ParamString, Required: true, Description: "The reply text"},
			},
		},
	}
}

// Get returns a tool spec by name
func (c *Catalog) Get(name string) (ToolSpec, bool) {
	spec, ok := c.tools[name]
	return spec, ok
}

// Names lists the catalog in declaration order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Describe renders the catalog as prompt text so the collaborator
// knows exactly what it may call
func (c *Catalog) Describe() string {
	out := ""
	for _, name := range c.order {
		spec := c.tools[name]
		out += fmt.Sprintf("- %s: %s\n", spec.Name, spec.Description)
		for _, p := range spec.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			out += fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description)
		}
	}
	return out
}

// ValidateCall checks an untrusted tool call against the catalog:
// the tool must exist, args must be a JSON object, required params
// must be present, and every supplied param must match its declared
// type. Unknown extra params are rejected, not ignored.
func (c *Catalog) ValidateCall(call ports.ToolCall) error {
	spec, ok := c.tools[call.Name]
	if !ok {
		return fmt.Errorf("unknown tool %q", call.Name)
	}

	args := map[string]json.RawMessage{}
	if len(call.Args) > 0 {
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return fmt.Errorf("tool %s: args must be a JSON object: %w", call.Name, err)
		}
	}

	known := make(map[string]ParamSpec, len(spec.Params))
	for _, p := range spec.Params {
		known[p.Name] = p
		raw, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("tool %s: missing required param %q", call.Name, p.Name)
			}
			continue
		}
		if err := checkType(raw, p.Type); err != nil {
			return fmt.Errorf("tool %s: param %q: %w", call.Name, p.Name, err)
		}
	}
	for name := range args {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("tool %s: unexpected param %q", call.Name, name)
		}
	}
	return nil
}

func checkType(raw json.RawMessage, t ParamType) error {
	switch t {
	case ParamString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected string")
		}
	case ParamNumber:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected number")
		}
	case ParamInteger:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil || v != float64(int64(v)) {
			return fmt.Errorf("expected integer")
		}
	case ParamArray:
		var v []json.RawMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected array")
		}
	case ParamBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("expected boolean")
		}
	}
	return nil
}
