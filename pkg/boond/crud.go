package boond

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
)

func (c *httpClient) Get(ctx context.Context, rt ResourceType, id ID, view DetailView) (*Entity, error) {
	if id <= 0 {
		return nil, validationError("invalid id %d", id)
	}
	path, err := detailPath(rt, id, view)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, request{op: "get " + string(rt), method: http.MethodGet, path: path})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: get %s %d", rt, id)
	}
	var ent Entity
	if err := json.Unmarshal(resp.body, &ent); err != nil {
		return nil, eris.Wrapf(err, "boond: decode %s %d", rt, id)
	}
	if ent.Data.ID == 0 {
		ent.Data.ID = id
	}
	return &ent, nil
}

// writeBody is the envelope BoondManager expects on create and update.
type writeBody struct {
	Data writeData `json:"data"`
}

type writeData struct {
	ID         ID             `json:"id,omitempty"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

func (c *httpClient) Create(ctx context.Context, rt ResourceType, attrs map[string]any) (*Entity, error) {
	if !rt.Listable() {
		return nil, validationError("%s cannot be created directly", rt)
	}
	body, err := json.Marshal(writeBody{Data: writeData{Type: rt.singular(), Attributes: attrs}})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: encode %s", rt)
	}
	resp, err := c.do(ctx, request{
		op:          "create " + string(rt),
		method:      http.MethodPost,
		path:        "/" + string(rt),
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: create %s", rt)
	}
	var ent Entity
	if err := json.Unmarshal(resp.body, &ent); err != nil {
		return nil, eris.Wrapf(err, "boond: decode created %s", rt)
	}
	if ent.Data.ID <= 0 {
		return nil, &APIError{Kind: ErrRemoteService, Environment: c.env, Message: "create returned no id"}
	}
	return &ent, nil
}

func (c *httpClient) Update(ctx context.Context, rt ResourceType, id ID, attrs map[string]any) (*Entity, error) {
	if !rt.Listable() {
		return nil, validationError("%s cannot be updated directly", rt)
	}
	if id <= 0 {
		return nil, validationError("invalid id %d", id)
	}
	path, err := detailPath(rt, id, ViewInformation)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(writeBody{Data: writeData{ID: id, Type: rt.singular(), Attributes: attrs}})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: encode %s %d", rt, id)
	}
	resp, err := c.do(ctx, request{
		op:          "update " + string(rt),
		method:      http.MethodPut,
		path:        path,
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: update %s %d", rt, id)
	}
	var ent Entity
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &ent); err != nil {
			return nil, eris.Wrapf(err, "boond: decode updated %s %d", rt, id)
		}
	}
	if ent.Data.ID == 0 {
		ent.Data.ID = id
	}
	return &ent, nil
}
