package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadContext(t *testing.T, filename string, content []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/import", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, w
}

func TestStudentHandlerImportRejectsUnsupportedFiles(t *testing.T) {
	h := NewStudentHandler(nil)

	c, w := uploadContext(t, "students.xls", []byte("legacy"))
	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "only .csv and .xlsx files are supported", decode(t, w).Error.Message)
}

func TestStudentHandlerImportRequiresFile(t *testing.T) {
	h := NewStudentHandler(nil)

	c, w := newGinContext(http.MethodPost, "/students/import", nil)
	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", decode(t, w).Error.Message)
}
