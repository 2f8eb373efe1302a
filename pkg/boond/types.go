package boond

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Environment identifies one of the two isolated BoondManager instances.
type Environment string

const (
	// Production is the authoritative CRM instance.
	Production Environment = "production"
	// Sandbox is the replica that reconciliation writes into.
	Sandbox Environment = "sandbox"
)

// Environments lists every known environment.
var Environments = []Environment{Production, Sandbox}

// ParseEnvironment parses an environment name. Matching is case-insensitive;
// "prod" is accepted as an alias for production.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production, nil
	case "sandbox":
		return Sandbox, nil
	default:
		return "", &APIError{Kind: ErrValidation, Message: fmt.Sprintf("unknown environment %q", s)}
	}
}

// EnvironmentOr parses raw, falling back to def when raw is blank. This is
// the single defaulting policy for every entry point.
func EnvironmentOr(raw string, def Environment) (Environment, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return ParseEnvironment(raw)
}

func (e Environment) String() string { return string(e) }

// ResourceType is a BoondManager collection.
type ResourceType string

const (
	Candidates ResourceType = "candidates"
	Resources  ResourceType = "resources"
	Projects   ResourceType = "projects"
	Documents  ResourceType = "documents"
)

// ListableTypes are the resource types with a paginated listing endpoint,
// in the order a full snapshot fetches them.
var ListableTypes = []ResourceType{Candidates, Resources, Projects}

// ParseResourceType accepts the plural collection name or its singular form.
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "candidates", "candidate":
		return Candidates, nil
	case "resources", "resource":
		return Resources, nil
	case "projects", "project":
		return Projects, nil
	case "documents", "document":
		return Documents, nil
	default:
		return "", &APIError{Kind: ErrValidation, Message: fmt.Sprintf("unknown resource type %q", s)}
	}
}

// Listable reports whether the type has a listing endpoint.
func (r ResourceType) Listable() bool {
	return r == Candidates || r == Resources || r == Projects
}

// HasResumes reports whether records of this type carry resume documents.
func (r ResourceType) HasResumes() bool {
	return r == Candidates || r == Resources
}

// singular is the JSON:API type name of one record of the collection.
func (r ResourceType) singular() string {
	return strings.TrimSuffix(string(r), "s")
}

// ResumeParentType is the parentType BoondManager expects when uploading a
// resume attached to a record of this type.
func (r ResourceType) ResumeParentType() string {
	switch r {
	case Candidates:
		return "candidateResume"
	case Resources:
		return "resourceResume"
	default:
		return ""
	}
}

// ID is a BoondManager record id. The API serializes ids either as numbers
// or as strings; both decode.
type ID int64

// ParseID parses a positive record id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, &APIError{Kind: ErrValidation, Message: fmt.Sprintf("invalid id %q", s)}
	}
	return ID(n), nil
}

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// UnmarshalJSON accepts 123 and "123".
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "boond: decode id")
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return eris.Wrapf(err, "boond: decode id %q", s)
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return eris.Wrap(err, "boond: decode id")
	}
	*id = ID(n)
	return nil
}

// Ref is an environment-scoped entity reference.
type Ref struct {
	Environment Environment  `json:"environment"`
	Type        ResourceType `json:"type"`
	ID          ID           `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Environment, r.Type, r.ID)
}

// Linkage is one entry of a relationship.
type Linkage struct {
	ID   ID     `json:"id"`
	Type string `json:"type"`
}

// Relationship holds the linkage data of a relationship. BoondManager
// returns either a single object or an array; both decode into Data.
type Relationship struct {
	Data []Linkage `json:"-"`
}

// UnmarshalJSON decodes {"data": {...}} and {"data": [...]}.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return eris.Wrap(err, "boond: decode relationship")
	}
	data := bytes.TrimSpace(raw.Data)
	switch {
	case len(data) == 0 || string(data) == "null":
		r.Data = nil
	case data[0] == '[':
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return eris.Wrap(err, "boond: decode relationship list")
		}
	default:
		var one Linkage
		if err := json.Unmarshal(data, &one); err != nil {
			return eris.Wrap(err, "boond: decode relationship")
		}
		r.Data = []Linkage{one}
	}
	return nil
}

// MarshalJSON encodes the relationship as a list.
func (r Relationship) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Data []Linkage `json:"data"`
	}{Data: r.Data})
}

// Record is one BoondManager object.
type Record struct {
	ID            ID                      `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Attr returns a string rendering of an attribute, or "" when absent.
// Numbers render without a trailing ".0".
func (r Record) Attr(name string) string {
	v, ok := r.Attributes[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Related returns the linkages of a named relationship.
func (r Record) Related(name string) []Linkage {
	return r.Relationships[name].Data
}

// Entity is a detail fetch: the primary record and its included side-table.
type Entity struct {
	Data     Record   `json:"data"`
	Included []Record `json:"included,omitempty"`
}

// FindIncluded returns the included record with the given type and id.
func (e *Entity) FindIncluded(typ string, id ID) (Record, bool) {
	return findIncluded(e.Included, typ, id)
}

func findIncluded(included []Record, typ string, id ID) (Record, bool) {
	for _, inc := range included {
		if inc.ID == id && (typ == "" || inc.Type == typ) {
			return inc, true
		}
	}
	return Record{}, false
}

// Totals holds listing totals.
type Totals struct {
	Rows int `json:"rows"`
}

// Meta is the listing metadata.
type Meta struct {
	Totals     Totals `json:"totals"`
	Page       int    `json:"page,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// PageCount is the number of pages for the current MaxResults.
func (m Meta) PageCount() int {
	if m.MaxResults <= 0 || m.Totals.Rows <= 0 {
		return 0
	}
	return (m.Totals.Rows + m.MaxResults - 1) / m.MaxResults
}

// Page is one page of a listing.
type Page struct {
	Data     []Record `json:"data"`
	Included []Record `json:"included,omitempty"`
	Meta     Meta     `json:"meta"`
}

// FindIncluded returns the included record with the given type and id.
func (p *Page) FindIncluded(typ string, id ID) (Record, bool) {
	return findIncluded(p.Included, typ, id)
}

// ListFilter selects one page of a listing. Pages are 1-indexed.
type ListFilter struct {
	Page       int    `json:"page" validate:"gte=1"`
	MaxResults int    `json:"maxResults" validate:"gte=1,lte=500"`
	Keywords   string `json:"keywords,omitempty" validate:"max=255"`
	State      string `json:"state,omitempty"`
	Company    string `json:"company,omitempty"`
}

// DefaultMaxResults is the page size used when a filter leaves it unset.
const DefaultMaxResults = 100

// WithDefaults fills an unset page and page size.
func (f ListFilter) WithDefaults() ListFilter {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.MaxResults == 0 {
		f.MaxResults = DefaultMaxResults
	}
	return f
}

// Document is resume/attachment metadata.
type Document struct {
	ID         ID           `json:"id"`
	Name       string       `json:"name"`
	ParentType ResourceType `json:"parentType"`
	ParentID   ID           `json:"parentId"`
}

// DocumentContent is a downloaded document.
type DocumentContent struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}
