package boond

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// GetResumes returns resume metadata attached to a candidate or resource.
// Content is not downloaded.
func (c *httpClient) GetResumes(ctx context.Context, rt ResourceType, id ID) ([]Document, error) {
	if !rt.HasResumes() {
		return nil, validationError("%s do not carry resumes", rt)
	}
	ent, err := c.Get(ctx, rt, id, ViewInformation)
	if err != nil {
		return nil, err
	}
	return resumesOf(ent, rt, id), nil
}

// resumesOf reads resumes from the "resumes" relationship, resolving names
// from the included side-table, or from an inline "resumes" attribute.
func resumesOf(ent *Entity, rt ResourceType, id ID) []Document {
	docs := []Document{}
	for _, link := range ent.Data.Related("resumes") {
		doc := Document{ID: link.ID, ParentType: rt, ParentID: id}
		if inc, ok := ent.FindIncluded("", link.ID); ok {
			doc.Name = firstNonEmpty(inc.Attr("name"), inc.Attr("fileName"))
		}
		docs = append(docs, doc)
	}
	if len(docs) > 0 {
		return docs
	}

	inline, ok := ent.Data.Attributes["resumes"].([]any)
	if !ok {
		return docs
	}
	for _, item := range inline {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw, err := json.Marshal(m)
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil || doc.ID <= 0 {
			continue
		}
		if doc.Name == "" {
			if s, ok := m["fileName"].(string); ok {
				doc.Name = s
			}
		}
		doc.ParentType, doc.ParentID = rt, id
		docs = append(docs, doc)
	}
	return docs
}

func (c *httpClient) DownloadDocument(ctx context.Context, id ID) (*DocumentContent, error) {
	if id <= 0 {
		return nil, validationError("invalid id %d", id)
	}
	path, err := detailPath(Documents, id, ViewDefault)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, request{op: "download document", method: http.MethodGet, path: path, accept: "*/*"})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: download document %d", id)
	}

	content := &DocumentContent{
		Name: "document-" + id.String(),
		Data: resp.body,
	}
	if cd := resp.header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			content.Name = params["filename"]
		}
	}
	content.MIMEType = resp.header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(content.MIMEType); err == nil {
		content.MIMEType = mt
	}
	if content.MIMEType == "" {
		content.MIMEType = http.DetectContentType(resp.body)
	}
	return content, nil
}

func (c *httpClient) UploadDocument(ctx context.Context, parentType ResourceType, parentID ID, content DocumentContent) (*Document, error) {
	pt := parentType.ResumeParentType()
	if pt == "" {
		return nil, validationError("%s do not carry resumes", parentType)
	}
	if parentID <= 0 {
		return nil, validationError("invalid parent id %d", parentID)
	}
	if strings.TrimSpace(content.Name) == "" {
		return nil, validationError("document name is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("parentType", pt); err != nil {
		return nil, eris.Wrap(err, "boond: write parentType")
	}
	if err := w.WriteField("parentId", parentID.String()); err != nil {
		return nil, eris.Wrap(err, "boond: write parentId")
	}
	part, err := w.CreateFormFile("file", content.Name)
	if err != nil {
		return nil, eris.Wrap(err, "boond: create file part")
	}
	if _, err := part.Write(content.Data); err != nil {
		return nil, eris.Wrap(err, "boond: write file part")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "boond: close multipart body")
	}

	resp, err := c.do(ctx, request{
		op:          "upload document",
		method:      http.MethodPost,
		path:        "/" + string(Documents),
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "boond: upload %s to %s %d", content.Name, parentType, parentID)
	}

	var ent Entity
	if err := json.Unmarshal(resp.body, &ent); err != nil {
		return nil, eris.Wrap(err, "boond: decode uploaded document")
	}
	return &Document{
		ID:         ent.Data.ID,
		Name:       firstNonEmpty(ent.Data.Attr("name"), content.Name),
		ParentType: parentType,
		ParentID:   parentID,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
