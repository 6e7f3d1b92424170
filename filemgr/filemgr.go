package filemgr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

type EntityType string
type PictureType string

const (
	EntityFacility EntityType = "facility"
	EntityUser     EntityType = "user"

	PicBanner PictureType = "banner"
	PicThumb  PictureType = "thumb"
)

var (
	allowedExtensions = map[PictureType][]string{
		PicBanner: {".jpg", ".jpeg", ".png"},
		PicThumb:  {".jpg"},
	}

	allowedMIMEs = map[PictureType][]string{
		PicBanner: {"image/jpeg", "image/png"},
		PicThumb:  {"image/jpeg"},
	}

	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
)

// ResolvePath is where uploads for an entity/picture type land on disk.
func ResolvePath(entity EntityType, picType PictureType) string {
	return filepath.Join("static", "uploads", string(entity), string(picType))
}

func isExtensionAllowed(ext string, picType PictureType) bool {
	for _, e := range allowedExtensions[picType] {
		if e == ext {
			return true
		}
	}
	return false
}

func isMIMEAllowed(mime string, picType PictureType) bool {
	for _, m := range allowedMIMEs[picType] {
		if strings.HasPrefix(mime, m) {
			return true
		}
	}
	return false
}

func ValidateImageDimensions(img image.Image, maxWidth, maxHeight int) error {
	bounds := img.Bounds()
	if bounds.Dx() > maxWidth || bounds.Dy() > maxHeight {
		return fmt.Errorf("image dimensions %dx%d exceed allowed maximum %dx%d",
			bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	}
	return nil
}

// SaveImageWithThumb saves the uploaded image under the entity's picture
// directory as <nameHint>.jpg and writes a resized thumbnail alongside it.
// Returns the saved file name and the thumbnail name.
func SaveImageWithThumb(file multipart.File, header *multipart.FileHeader, entity EntityType, picType PictureType, thumbWidth int, nameHint string) (string, string, error) {
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isExtensionAllowed(ext, picType) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	buf, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("failed to read file: %w", err)
	}

	if mime := http.DetectContentType(buf); !isMIMEAllowed(mime, picType) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidMIME, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return "", "", fmt.Errorf("failed to decode image %q: %w", header.Filename, err)
	}

	if err := ValidateImageDimensions(img, 6000, 6000); err != nil {
		return "", "", err
	}

	name := nameHint + ".jpg"

	origDir := ResolvePath(entity, picType)
	if err := os.MkdirAll(origDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create directory %q: %w", origDir, err)
	}
	if err := writeJPEG(filepath.Join(origDir, name), img); err != nil {
		return "", "", err
	}

	thumbDir := ResolvePath(entity, PicThumb)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return name, "", fmt.Errorf("failed to create thumbnail directory %q: %w", thumbDir, err)
	}
	thumbImg := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := writeJPEG(filepath.Join(thumbDir, name), thumbImg); err != nil {
		return name, "", err
	}

	return name, name, nil
}

func writeJPEG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}
