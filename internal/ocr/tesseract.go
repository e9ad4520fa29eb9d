package ocr

import "github.com/otiai10/gosseract/v2"

// ExtractText reads the image at path with a local Tesseract install.
// Selected with OCR_ENGINE=tesseract; no API budget, lower quality on
// handwriting and photos.
func ExtractText(path, lang string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	client.SetLanguage(lang)
	client.SetImage(path)
	return client.Text()
}
