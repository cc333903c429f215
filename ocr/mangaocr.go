package ocr

// DefaultMangaOCRCommand runs the bundled helper that wraps the manga-ocr
// model. Override with MANGA_OCR_COMMAND when the helper lives elsewhere.
const DefaultMangaOCRCommand = "python -m daisho_engines.manga_ocr"

// NewMangaOCR builds the manga-ocr engine. manga-ocr is the default backend:
// it reads vertical and furigana-annotated text far better than general
// purpose models.
func NewMangaOCR(command string) Engine {
	if command == "" {
		command = DefaultMangaOCRCommand
	}
	return newSidecarEngine(EngineMangaOCR, command)
}
