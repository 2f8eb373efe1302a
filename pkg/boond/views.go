package boond

import "strings"

// DetailView selects a sub-view ("tab") of a record detail fetch.
type DetailView int

const (
	// ViewDefault fetches the record root without a tab.
	ViewDefault DetailView = iota
	ViewInformation
	ViewActions
	ViewDeliveries
	ViewProjects
	ViewDocuments
)

// tab returns the URL segment for the view.
func (v DetailView) tab() (string, bool) {
	switch v {
	case ViewDefault:
		return "", true
	case ViewInformation:
		return "information", true
	case ViewActions:
		return "actions", true
	case ViewDeliveries:
		return "deliveries", true
	case ViewProjects:
		return "projects", true
	case ViewDocuments:
		return "documents", true
	default:
		return "", false
	}
}

func (v DetailView) String() string {
	if t, ok := v.tab(); ok && t != "" {
		return t
	}
	if v == ViewDefault {
		return "default"
	}
	return "unknown"
}

// ParseDetailView parses a tab name; blank selects ViewDefault.
func ParseDetailView(s string) (DetailView, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ViewDefault, nil
	case "information":
		return ViewInformation, nil
	case "actions":
		return ViewActions, nil
	case "deliveries":
		return ViewDeliveries, nil
	case "projects":
		return ViewProjects, nil
	case "documents":
		return ViewDocuments, nil
	default:
		return ViewDefault, validationError("unknown tab %q", s)
	}
}

// supportedViews lists the tabs BoondManager exposes per resource type.
var supportedViews = map[ResourceType][]DetailView{
	Candidates: {ViewDefault, ViewInformation, ViewActions},
	Resources:  {ViewDefault, ViewInformation, ViewActions, ViewProjects, ViewDeliveries},
	Projects:   {ViewDefault, ViewInformation, ViewActions, ViewDeliveries, ViewDocuments},
	Documents:  {ViewDefault},
}

// Supports reports whether rt exposes the view.
func (v DetailView) Supports(rt ResourceType) bool {
	for _, s := range supportedViews[rt] {
		if s == v {
			return true
		}
	}
	return false
}

// detailPath builds "/{type}/{id}[/{tab}]", rejecting views the resource
// type does not expose.
func detailPath(rt ResourceType, id ID, v DetailView) (string, error) {
	tab, ok := v.tab()
	if !ok {
		return "", validationError("unknown view %d", int(v))
	}
	if !v.Supports(rt) {
		return "", validationError("%s does not expose the %s tab", rt, v)
	}
	p := "/" + string(rt) + "/" + id.String()
	if tab != "" {
		p += "/" + tab
	}
	return p, nil
}
