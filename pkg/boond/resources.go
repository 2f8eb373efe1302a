package boond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func filterValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the filter bounds after defaults are applied.
func (f ListFilter) Validate() error {
	if err := filterValidator().Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return validationError("filter %s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return &APIError{Kind: ErrValidation, Message: err.Error(), Err: err}
	}
	return nil
}

// stateParams maps each listable type to its state filter parameter.
var stateParams = map[ResourceType]string{
	Candidates: "candidateStates",
	Resources:  "resourceStates",
	Projects:   "projectStates",
}

func (f ListFilter) query(rt ResourceType) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("maxResults", strconv.Itoa(f.MaxResults))
	if f.Keywords != "" {
		q.Set("keywords", f.Keywords)
	}
	if f.State != "" {
		q.Set(stateParams[rt], f.State)
	}
	if f.Company != "" {
		q.Set("company", f.Company)
	}
	return q
}

func (c *httpClient) List(ctx context.Context, rt ResourceType, filter ListFilter) (*Page, error) {
	if !rt.Listable() {
		return nil, validationError("%s cannot be listed", rt)
	}
	filter = filter.WithDefaults()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		op:     "list " + string(rt),
		method: http.MethodGet,
		path:   "/" + string(rt),
		query:  filter.query(rt),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: list %s page %d", rt, filter.Page)
	}

	var page Page
	if err := json.Unmarshal(resp.body, &page); err != nil {
		return nil, eris.Wrapf(err, "boond: decode %s page %d", rt, filter.Page)
	}
	page.Meta.Page = filter.Page
	if page.Meta.MaxResults == 0 {
		page.Meta.MaxResults = filter.MaxResults
	}
	// Some tenants answer past-the-end pages with the last page again.
	if last := page.Meta.PageCount(); last > 0 && filter.Page > last {
		page.Data = nil
		page.Included = nil
	}
	if page.Data == nil {
		page.Data = []Record{}
	}
	return &page, nil
}

// GetCandidate fetches one candidate tab.
func GetCandidate(ctx context.Context, c Client, id ID, view DetailView) (*Entity, error) {
	return c.Get(ctx, Candidates, id, view)
}

// ListCandidates fetches one page of candidates.
func ListCandidates(ctx context.Context, c Client, filter ListFilter) (*Page, error) {
	return c.List(ctx, Candidates, filter)
}

// GetResource fetches one resource (employee) tab.
func GetResource(ctx context.Context, c Client, id ID, view DetailView) (*Entity, error) {
	return c.Get(ctx, Resources, id, view)
}

// ListResources fetches one page of resources.
func ListResources(ctx context.Context, c Client, filter ListFilter) (*Page, error) {
	return c.List(ctx, Resources, filter)
}

// GetProject fetches one project tab.
func GetProject(ctx context.Context, c Client, id ID, view DetailView) (*Entity, error) {
	return c.Get(ctx, Projects, id, view)
}

// ListProjects fetches one page of projects.
func ListProjects(ctx context.Context, c Client, filter ListFilter) (*Page, error) {
	return c.List(ctx, Projects, filter)
}

// ListAll pages through a listing until a short page, the reported total,
// or a page with no unseen ids, calling fn for each page. It stops at the
// first error.
func ListAll(ctx context.Context, c Client, rt ResourceType, pageSize int, fn func(*Page) error) error {
	filter := ListFilter{Page: 1, MaxResults: pageSize}.WithDefaults()
	seen := make(map[ID]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := c.List(ctx, rt, filter)
		if err != nil {
			return err
		}
		// Tenants that omit totals echo the last page for past-the-end
		// requests.
		fresh := 0
		for _, r := range page.Data {
			if _, ok := seen[r.ID]; !ok {
				seen[r.ID] = struct{}{}
				fresh++
			}
		}
		if len(page.Data) > 0 && fresh == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page.Data) < filter.MaxResults {
			return nil
		}
		if total := page.Meta.Totals.Rows; total > 0 && len(seen) >= total {
			return nil
		}
		filter.Page++
	}
}
