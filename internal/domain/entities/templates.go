package entities

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectTemplate seeds a new project's columns and labels.
type ProjectTemplate struct {
	Key         string   `json:"key" yaml:"key"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Columns     []Column `json:"columns" yaml:"columns"`
	Labels      []Label  `json:"labels" yaml:"labels"`
}

// TemplateCatalog is an ordered set of templates addressed by key.
type TemplateCatalog struct {
	templates []ProjectTemplate
}

func NewTemplateCatalog(templates []ProjectTemplate) (*TemplateCatalog, error) {
	seen := map[string]struct{}{}
	out := make([]ProjectTemplate, 0, len(templates))
	for _, t := range templates {
		t.Key = strings.ToUpper(strings.TrimSpace(t.Key))
		if t.Key == "" {
			return nil, fmt.Errorf("template %q has no key", t.Name)
		}
		if _, dup := seen[t.Key]; dup {
			return nil, fmt.Errorf("duplicate template key %s", t.Key)
		}
		seen[t.Key] = struct{}{}

		cols, err := NormalizeColumns(t.Columns)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Key, err)
		}
		t.Columns = cols
		if err := ValidateLabels(t.Labels); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Key, err)
		}
		out = append(out, t)
	}
	return &TemplateCatalog{templates: out}, nil
}

// LoadTemplateCatalog reads a YAML list of templates. An empty path yields
// the built-in catalogue.
func LoadTemplateCatalog(path string) (*TemplateCatalog, error) {
	if path == "" {
		return DefaultTemplateCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}

	var doc struct {
		Templates []ProjectTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}
	return NewTemplateCatalog(doc.Templates)
}

// All returns copies of every template in catalogue order.
func (c *TemplateCatalog) All() []ProjectTemplate {
	out := make([]ProjectTemplate, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.clone()
	}
	return out
}

// Get returns a copy of the template with the given key.
func (c *TemplateCatalog) Get(key string) (ProjectTemplate, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, t := range c.templates {
		if t.Key == key {
			return t.clone(), nil
		}
	}
	return ProjectTemplate{}, ErrUnknownTemplate
}

func (t ProjectTemplate) clone() ProjectTemplate {
	t.Columns = append([]Column(nil), t.Columns...)
	t.Labels = append([]Label(nil), t.Labels...)
	return t
}

// DefaultTemplateCatalog is the built-in set of board templates.
func DefaultTemplateCatalog() *TemplateCatalog {
	cat, err := NewTemplateCatalog(builtinTemplates)
	if err != nil {
		panic(err)
	}
	return cat
}

func cols(pairs ...string) []Column {
	out := make([]Column, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Column{ID: pairs[i], Title: pairs[i+1], Order: i / 2})
	}
	return out
}

var builtinTemplates = []ProjectTemplate{
	{
		Key:         "SOFTWARE",
		Name:        "Software Development",
		Description: "Track tasks, bugs, and features.",
		Columns: cols(
			"TODO", "To Do",
			"IN_PROGRESS", "In Progress",
			"CODE_REVIEW", "Code Review",
			"TESTING", "QA / Testing",
			"DONE", "Done",
		),
		Labels: []Label{
			{ID: "bug", Name: "Bug", Color: "#ef4444"},
			{ID: "feature", Name: "Feature", Color: "#3b82f6"},
			{ID: "enhancement", Name: "Enhancement", Color: "#10b981"},
			{ID: "documentation", Name: "Documentation", Color: "#f59e0b"},
			{ID: "design", Name: "Design", Color: "#8b5cf6"},
		},
	},
	{
		Key:         "MARKETING",
		Name:        "Marketing Campaign",
		Description: "Manage content, campaigns, and assets.",
		Columns: cols(
			"IDEATION", "Ideation",
			"DRAFTING", "Drafting",
			"DESIGN", "Design",
			"REVIEW", "Review",
			"SCHEDULED", "Scheduled",
			"PUBLISHED", "Published",
		),
		Labels: []Label{
			{ID: "social", Name: "Social Media", Color: "#3b82f6"},
			{ID: "blog", Name: "Blog Post", Color: "#10b981"},
			{ID: "email", Name: "Email Newsletter", Color: "#f59e0b"},
			{ID: "ad", Name: "Advertisement", Color: "#ef4444"},
		},
	},
	{
		Key:         "SALES",
		Name:        "Sales Pipeline",
		Description: "Track leads and potential deals.",
		Columns: cols(
			"LEAD", "New Lead",
			"CONTACTED", "Contacted",
			"MEETING", "Meeting Scheduled",
			"PROPOSAL", "Proposal Sent",
			"NEGOTIATION", "Negotiation",
			"CLOSED_WON", "Closed (Won)",
			"CLOSED_LOST", "Closed (Lost)",
		),
		Labels: []Label{
			{ID: "hot", Name: "Hot Lead", Color: "#ef4444"},
			{ID: "warm", Name: "Warm Lead", Color: "#f59e0b"},
			{ID: "cold", Name: "Cold Lead", Color: "#3b82f6"},
			{ID: "enterprise", Name: "Enterprise", Color: "#8b5cf6"},
		},
	},
	{
		Key:         "DESIGN",
		Name:        "Design Requests",
		Description: "Track design tasks and feedback.",
		Columns: cols(
			"REQUESTED", "Requested",
			"CONCEPT", "Concept",
			"WIREFRAMING", "Wireframing",
			"PROTOTYPING", "Prototyping",
			"FEEDBACK", "Client Feedback",
			"FINAL_POLISH", "Final Polish",
			"DELIVERED", "Delivered",
		),
		Labels: []Label{
			{ID: "ui", Name: "UI / Visual", Color: "#3b82f6"},
			{ID: "ux", Name: "UX / Research", Color: "#10b981"},
			{ID: "mobile", Name: "Mobile", Color: "#f59e0b"},
			{ID: "web", Name: "Web", Color: "#8b5cf6"},
		},
	},
	{
		Key:         "HR",
		Name:        "Recruitment Pipeline",
		Description: "Track candidates through the hiring process.",
		Columns: cols(
			"APPLIED", "Applied",
			"SCREENING", "Screening",
			"INTERVIEW_1", "1st Interview",
			"INTERVIEW_2", "2nd Interview",
			"OFFER", "Offer Sent",
			"HIRED", "Hired",
			"REJECTED", "Rejected",
		),
		Labels: []Label{
			{ID: "engineering", Name: "Engineering", Color: "#3b82f6"},
			{ID: "product", Name: "Product", Color: "#10b981"},
			{ID: "design", Name: "Design", Color: "#8b5cf6"},
			{ID: "sales", Name: "Sales", Color: "#f59e0b"},
		},
	},
}
