package boond

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResumes_FromRelationships(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candidates/3/information", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
			"data": {"id": 3, "type": "candidate",
				"relationships": {"resumes": {"data": [{"id": 11, "type": "document"}, {"id": 12, "type": "document"}]}}},
			"included": [
				{"id": 11, "type": "document", "attributes": {"name": "cv-2023.pdf"}},
				{"id": 12, "type": "document", "attributes": {"fileName": "cv-en.docx"}}
			]
		}`)
	}))
	defer srv.Close()

	docs, err := newTestClient(t, srv.URL).GetResumes(context.Background(), Candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []Document{
		{ID: 11, Name: "cv-2023.pdf", ParentType: Candidates, ParentID: 3},
		{ID: 12, Name: "cv-en.docx", ParentType: Candidates, ParentID: 3},
	}, docs)
}

func TestGetResumes_FromInlineAttribute(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data": {"id": 4, "type": "resource",
			"attributes": {"resumes": [{"id": "21", "name": "resume.pdf"}, {"name": "no id"}]}}}`)
	}))
	defer srv.Close()

	docs, err := newTestClient(t, srv.URL).GetResumes(context.Background(), Resources, 4)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ID(21), docs[0].ID)
	assert.Equal(t, "resume.pdf", docs[0].Name)
	assert.Equal(t, Resources, docs[0].ParentType)
}

func TestGetResumes_ProjectsRejected(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(t, "http://unused").GetResumes(context.Background(), Projects, 1)
	assert.True(t, IsValidation(err))
}

func TestDownloadDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/9", r.URL.Path)
		assert.Equal(t, "*/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf; charset=binary")
		w.Header().Set("Content-Disposition", `attachment; filename="cv ana.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).DownloadDocument(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "cv ana.pdf", doc.Name)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4"), doc.Data)
}

func TestDownloadDocument_FallbackNameAndSniffedType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("plain words"))
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).DownloadDocument(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "document-5", doc.Name)
	assert.Equal(t, "text/plain; charset=utf-8", doc.MIMEType)
}

func TestUploadDocument_Multipart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/documents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "resourceResume", r.FormValue("parentType"))
		assert.Equal(t, "77", r.FormValue("parentId"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "cv.pdf", hdr.Filename)
		assert.Equal(t, "bytes", string(body))

		writeJSON(w, http.StatusCreated, `{"data":{"id":501,"type":"document","attributes":{"name":"cv.pdf"}}}`)
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).UploadDocument(context.Background(), Resources, 77,
		DocumentContent{Name: "cv.pdf", MIMEType: "application/pdf", Data: []byte("bytes")})
	require.NoError(t, err)
	assert.Equal(t, &Document{ID: 501, Name: "cv.pdf", ParentType: Resources, ParentID: 77}, doc)
}

func TestUploadDocument_Validation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://unused")
	_, err := c.UploadDocument(context.Background(), Projects, 1, DocumentContent{Name: "x"})
	assert.True(t, IsValidation(err))

	_, err = c.UploadDocument(context.Background(), Candidates, 1, DocumentContent{})
	assert.True(t, IsValidation(err))
}
