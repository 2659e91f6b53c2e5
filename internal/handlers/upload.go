package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxImageSize = 5 << 20 // 5MB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// saveImage stores an uploaded image under imagesDir/subdir with a random
// filename and returns the relative URL it is served at.
func saveImage(file *multipart.FileHeader, imagesDir, subdir string) (string, error) {
	if file.Size > maxImageSize {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Kích thước ảnh tối đa là 5MB.")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Chỉ chấp nhận ảnh jpg, jpeg, png hoặc gif.")
	}

	dir := filepath.Join(imagesDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	return path.Join("/images", subdir, name), nil
}
