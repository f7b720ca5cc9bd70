package service

import (
	"fmt"
	"mime/multipart"

	"github.com/pkg/errors"
)

// SpreadsheetTypes are the content types accepted for workbook uploads.
var SpreadsheetTypes = []string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/octet-stream",
}

// MaxUploadSize bounds uploaded workbooks.
const MaxUploadSize = 5 << 20

func InArray[T comparable](val T, array []T) bool {
	for _, v := range array {
		if val == v {
			return true
		}
	}
	return false
}

// OpenUpload checks an uploaded file's type and size and opens it. The
// caller closes the returned file.
func OpenUpload(file *multipart.FileHeader, expectedContentType []string) (multipart.File, error) {
	if file == nil {
		return nil, errors.New("file is required")
	}

	incomeContentType := file.Header.Get("Content-Type")
	if !InArray(incomeContentType, expectedContentType) {
		return nil, fmt.Errorf("invalid file type, expected: %v, got: %s", expectedContentType, incomeContentType)
	}
	if file.Size > MaxUploadSize {
		return nil, fmt.Errorf("file is larger than %d bytes", MaxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	return src, nil
}
