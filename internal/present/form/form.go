package form

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/works-uploader"
)

// MaxFileSize bounds a single uploaded file.
const MaxFileSize = 16 << 20

// BindWork reads a work form from a JSON, urlencoded or multipart body.
func BindWork(c echo.Context) (works.WorkForm, error) {
	var form works.WorkForm

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		if err := (&echo.DefaultBinder{}).BindBody(c, &form); err != nil {
			return form, err
		}
		return form, nil
	}

	// an unreadable type stays zero and is reported by validation
	if typ, err := strconv.Atoi(c.FormValue("type")); err == nil {
		form.Type = works.WorkType(typ)
	}
	form.Title = c.FormValue("title")
	form.Description = c.FormValue("description")
	form.ContentURL = c.FormValue("contentUrl")

	var err error
	form.Thumbnail, err = file(c, "thumbnail")
	if err != nil {
		return form, err
	}
	form.Content, err = file(c, "content")
	if err != nil {
		return form, err
	}

	return form, nil
}

func file(c echo.Context, name string) (*works.FormFile, error) {
	header, err := c.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	// browsers submit an empty part for an untouched file input
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}
	return read(header)
}

func read(header *multipart.FileHeader) (*works.FormFile, error) {
	if header.Size > MaxFileSize {
		return nil, errors.Errorf("%s exceeds %d bytes", header.Filename, MaxFileSize)
	}

	f, err := header.Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read uploaded file")
	}

	return &works.FormFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
